package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	// CLI flags shared by estimate and compare
	logLevel            string  // Log verbosity level
	programPath         string  // YAML program description
	flopsPerSecond      float64 // Override of hardware.flops_per_second
	defaultMemBandwidth float64 // Override of hardware.default_mem_bytes_per_second
	recordDB            string  // SQLite path prefix for per-instruction records

	// estimate-only flags
	planName   string // Plan to estimate (all plans when empty)
	printTrace bool   // Include per-instruction records in the output
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "tiersim",
	Short: "Runtime estimator for memory-tier placement plans",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// estimateCmd estimates one or all plans of a program
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the elapsed time of a program under its allocation plans",
	Run: func(cmd *cobra.Command, args []string) {
		opts := runOptionsFromFlags(cmd)
		if err := runEstimate(opts, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("estimate failed: %v", err)
		}
	},
}

// compareCmd ranks every plan of a program
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank the allocation plans of a program by estimated elapsed time",
	Run: func(cmd *cobra.Command, args []string) {
		opts := runOptionsFromFlags(cmd)
		if err := runCompare(opts, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("compare failed: %v", err)
		}
	},
}

// runOptionsFromFlags collects flag values. Hardware overrides apply only when
// the user set them, so values from the program file are never clobbered by defaults.
func runOptionsFromFlags(cmd *cobra.Command) runOptions {
	opts := runOptions{
		ProgramPath: programPath,
		Plan:        planName,
		Trace:       printTrace,
		RecordDB:    recordDB,
	}
	if cmd.Flags().Changed("flops-per-second") {
		if v, err := cmd.Flags().GetFloat64("flops-per-second"); err == nil {
			opts.FlopsPerSecond = &v
		}
	}
	if cmd.Flags().Changed("default-mem-bandwidth") {
		if v, err := cmd.Flags().GetFloat64("default-mem-bandwidth"); err == nil {
			opts.DefaultMemBandwidth = &v
		}
	}
	return opts
}

// Execute runs the CLI root command. Exit goes through atexit so that
// registered flushes (the SQLite recorder) run on both success and failure.
func Execute() {
	logrus.StandardLogger().ExitFunc = atexit.Exit
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	for _, c := range []*cobra.Command{estimateCmd, compareCmd} {
		c.Flags().StringVar(&programPath, "program", "", "Path to the YAML program description")
		c.Flags().Float64Var(&flopsPerSecond, "flops-per-second", 0, "Override the program's compute rate (FLOP per time unit)")
		c.Flags().Float64Var(&defaultMemBandwidth, "default-mem-bandwidth", 0, "Override the program's default-memory bandwidth (bytes per time unit)")
		c.Flags().StringVar(&recordDB, "record-db", "", "Record per-instruction estimates into <path>.sqlite3")
		_ = c.MarkFlagRequired("program")
	}

	estimateCmd.Flags().StringVar(&planName, "plan", "", "Plan to estimate (default: every plan in the program)")
	estimateCmd.Flags().BoolVar(&printTrace, "trace", false, "Print per-instruction records")

	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(compareCmd)
}
