package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tplcheck/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tplcheck",
	Short: "Static analysis for templates through an external type checker",
	Long:  `tplcheck compiles templates into checkable units, runs the external type checker over them, and maps findings back to template lines`,
}

// main registers subcommands and persistent flags, then executes the root
// command. Command failure exits with status code 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag against the terminal.
func useColor(value string) bool {
	switch value {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
