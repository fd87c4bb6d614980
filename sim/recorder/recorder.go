// Package recorder persists estimate traces into a SQLite database so that
// candidate plans can be compared instruction by instruction after a run.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/inference-sim/tiersim/sim/trace"
)

const (
	estimateTable = "estimates"
	summaryTable  = "plan_summaries"
)

// tableSchema pairs a table with the row type whose field names become its columns.
type tableSchema struct {
	name   string
	sample any
}

var schema = []tableSchema{
	{name: estimateTable, sample: estimateRow{}},
	{name: summaryTable, sample: summaryRow{}},
}

// estimateRow is one scheduled instruction of one plan.
type estimateRow struct {
	RunID             string
	Plan              string
	Idx               int
	Instruction       string
	Opcode            string
	Kind              string
	TripCount         int64
	Elapsed           float64
	Direction         string
	Contended         bool
	ReadDefaultBytes  float64
	WriteDefaultBytes float64
}

// summaryRow aggregates one plan.
type summaryRow struct {
	RunID                string
	Plan                 string
	Total                float64
	ComputeElapsed       float64
	CopyElapsed          float64
	CopiesIssued         int
	CopiesCompleted      int
	ContendedCompletions int
	SlowestCopy          string
}

// Recorder buffers trace rows and writes them to SQLite in batches.
// All rows written through one Recorder share a RunID.
type Recorder struct {
	db        *sql.DB
	filename  string
	runID     string
	batchSize int
	estimates []estimateRow
	summaries []summaryRow
}

// New creates <path>.sqlite3 and its tables. An empty path picks a unique
// name. Returns an error if the file already exists.
// Buffered rows are flushed when the process exits through atexit.
func New(path string) (*Recorder, error) {
	if path == "" {
		path = "tiersim_estimate_" + xid.New().String()
	}
	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("recorder: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", filename, err)
	}

	r := &Recorder{
		db:        db,
		filename:  filename,
		runID:     xid.New().String(),
		batchSize: 100000,
	}
	for _, table := range schema {
		if err := r.createTable(table.name, table.sample); err != nil {
			_ = db.Close()
			// A half-initialized file would make a retry fail with "already exists".
			_ = os.Remove(filename)
			return nil, err
		}
	}

	logrus.Infof("Database created for recording: %s", filename)

	atexit.Register(func() {
		if err := r.Flush(); err != nil {
			logrus.Errorf("recorder: flush at exit: %v", err)
		}
	})

	return r, nil
}

// Filename returns the SQLite file being written.
func (r *Recorder) Filename() string {
	return r.filename
}

// RunID returns the identifier stamped on every row from this recorder.
func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) createTable(tableName string, sampleEntry any) error {
	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	if _, err := r.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("recorder: create table %s: %w", tableName, err)
	}
	return nil
}

// Write buffers every record of et and a summary row for its plan.
// Nil traces are ignored.
func (r *Recorder) Write(et *trace.EstimateTrace) error {
	if et == nil {
		return nil
	}
	for _, rec := range et.Records {
		r.estimates = append(r.estimates, estimateRow{
			RunID:             r.runID,
			Plan:              et.Plan,
			Idx:               rec.Index,
			Instruction:       rec.Instruction,
			Opcode:            rec.Opcode,
			Kind:              string(rec.Kind),
			TripCount:         rec.TripCount,
			Elapsed:           rec.Elapsed,
			Direction:         rec.Direction,
			Contended:         rec.Contended,
			ReadDefaultBytes:  rec.ReadDefaultBytes,
			WriteDefaultBytes: rec.WriteDefaultBytes,
		})
	}

	summary := trace.Summarize(et)
	r.summaries = append(r.summaries, summaryRow{
		RunID:                r.runID,
		Plan:                 et.Plan,
		Total:                et.Total(),
		ComputeElapsed:       summary.ComputeElapsed,
		CopyElapsed:          summary.CopyElapsed,
		CopiesIssued:         summary.CopiesIssued,
		CopiesCompleted:      summary.CopiesCompleted,
		ContendedCompletions: summary.ContendedCompletions,
		SlowestCopy:          summary.SlowestCopy,
	})

	if len(r.estimates) >= r.batchSize {
		return r.Flush()
	}
	return nil
}

// Flush writes all buffered rows in one transaction.
func (r *Recorder) Flush() error {
	if len(r.estimates) == 0 && len(r.summaries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("recorder: begin: %w", err)
	}

	if err := insertAll(tx, estimateTable, r.estimates); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertAll(tx, summaryTable, r.summaries); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recorder: commit: %w", err)
	}

	r.estimates = r.estimates[:0]
	r.summaries = r.summaries[:0]
	return nil
}

func insertAll[T any](tx *sql.Tx, tableName string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	names := structs.Names(rows[0])
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	sqlStr := "INSERT INTO " + tableName + " VALUES (" + placeholders + ")"

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("recorder: prepare insert into %s: %w", tableName, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if _, err := stmt.Exec(structs.Values(row)...); err != nil {
			return fmt.Errorf("recorder: insert into %s: %w", tableName, err)
		}
	}
	return nil
}

// Close flushes buffered rows and closes the database.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.db.Close()
}
