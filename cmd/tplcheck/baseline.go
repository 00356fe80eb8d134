package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tplcheck/internal/baseline"
	"tplcheck/internal/config"
	"tplcheck/internal/pipeline"
	"tplcheck/internal/source"
)

var (
	baselineOutput string
	baselineJobs   int
	baselineUI     string
)

func init() {
	baselineCmd.Flags().StringVarP(&baselineOutput, "output", "o", "", "baseline file to write (defaults to the configured path)")
	baselineCmd.Flags().IntVar(&baselineJobs, "jobs", 0, "parallel compile/flatten workers (0 = all CPUs)")
	baselineCmd.Flags().StringVar(&baselineUI, "ui", "auto", "interactive progress (auto|on|off)")
}

var baselineCmd = &cobra.Command{
	Use:   "baseline [paths...]",
	Short: "Record current findings so future runs only report new ones",
	Long: `baseline runs a full analysis with suppression disabled and persists
every remaining finding. Subsequent analyze runs skip recorded findings
until the baseline is regenerated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := readUIMode(baselineUI)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		cfg, err := config.Load(".")
		if err != nil {
			return err
		}

		req, err := buildRequest(cmd, cfg, args)
		if err != nil {
			return err
		}
		req.Jobs = baselineJobs
		// No req.Baseline: recording needs the unsuppressed findings.

		var res *pipeline.Result
		if shouldUseTUI(mode) {
			res, err = runPipelineWithUI(cmd.Context(), "recording baseline", req)
		} else {
			res, err = pipeline.Run(cmd.Context(), *req)
		}
		if err != nil {
			return err
		}
		if res.Bag.HasErrors() {
			return reportAnalysis(cmd, res)
		}

		entries, err := baseline.Generate(res.Resolved, func(id source.FileID) string {
			return res.RelTemplatePath(id, cfg.Dir)
		})
		if err != nil {
			return err
		}

		output := baselineOutput
		if output == "" {
			output = cfg.AbsBaselinePath()
		}
		if err := baseline.Write(output, entries); err != nil {
			return err
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d finding(s) in %s\n", len(entries), output)
		}
		return nil
	},
}
