package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tplcheck/internal/baseline"
	"tplcheck/internal/checker"
	"tplcheck/internal/config"
	"tplcheck/internal/diag"
	"tplcheck/internal/diagfmt"
	"tplcheck/internal/pipeline"
)

var (
	analyzeDebug      bool
	analyzeJobs       int
	analyzeFormat     string
	analyzeUI         string
	analyzePathMode   string
	analyzeNoBaseline bool
	analyzeKeep       bool
)

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDebug, "debug", false, "abort on the first recoverable error")
	analyzeCmd.Flags().IntVar(&analyzeJobs, "jobs", 0, "parallel compile/flatten workers (0 = all CPUs)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "pretty", "output format (pretty|json)")
	analyzeCmd.Flags().StringVar(&analyzeUI, "ui", "auto", "interactive progress (auto|on|off)")
	analyzeCmd.Flags().StringVar(&analyzePathMode, "path-mode", "relative", "path rendering (auto|absolute|relative|basename)")
	analyzeCmd.Flags().BoolVar(&analyzeNoBaseline, "no-baseline", false, "ignore the persisted baseline")
	analyzeCmd.Flags().BoolVar(&analyzeKeep, "keep-scratch", false, "keep the generated units for inspection")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Analyze templates and report findings in template coordinates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFormat != "pretty" && analyzeFormat != "json" {
			return fmt.Errorf("unsupported format %q (must be pretty or json)", analyzeFormat)
		}
		mode, err := readUIMode(analyzeUI)
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
		req.Debug = analyzeDebug
		req.Jobs = analyzeJobs
		req.KeepScratch = analyzeKeep
		if !analyzeNoBaseline {
			set, err := baseline.Load(cfg.AbsBaselinePath())
			if err != nil {
				return err
			}
			req.Baseline = set
		}

		var res *pipeline.Result
		if shouldUseTUI(mode) && analyzeFormat == "pretty" {
			res, err = runPipelineWithUI(cmd.Context(), "analyzing templates", req)
		} else {
			res, err = pipeline.Run(cmd.Context(), *req)
		}
		if err != nil {
			return err
		}

		return reportAnalysis(cmd, res)
	},
}

// buildRequest assembles the pipeline request shared by analyze and
// baseline generation.
func buildRequest(cmd *cobra.Command, cfg *config.Config, args []string) (*pipeline.Request, error) {
	maxDiags, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return nil, err
	}
	return &pipeline.Request{
		Config:         cfg,
		Paths:          args,
		MaxDiagnostics: maxDiags,
		Runner: &checker.ExecRunner{
			Binary: cfg.Checker.Binary,
			Args:   cfg.Checker.Args,
			Dir:    cfg.Dir,
		},
	}, nil
}

func reportAnalysis(cmd *cobra.Command, res *pipeline.Result) error {
	colorFlag, _ := cmd.Flags().GetString("color")
	quiet, _ := cmd.Flags().GetBool("quiet")
	timings, _ := cmd.Flags().GetBool("timings")
	maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")

	out := cmd.OutOrStdout()
	pathMode := diagfmt.ParsePathMode(analyzePathMode)

	res.Bag.Sort()
	all := make([]diag.Diagnostic, 0, res.Bag.Len()+len(res.Resolved))
	all = append(all, res.Bag.Items()...)
	all = append(all, res.Resolved...)
	if maxDiags > 0 && len(all) > maxDiags {
		all = all[:maxDiags]
	}

	if analyzeFormat == "json" {
		if err := diagfmt.JSON(out, all, res.FileSet, diagfmt.JSONOpts{PathMode: pathMode}); err != nil {
			return err
		}
	} else {
		diagfmt.Pretty(out, all, res.FileSet, diagfmt.PrettyOpts{
			Color:       useColor(colorFlag),
			PathMode:    pathMode,
			ShowChain:   true,
			ShowPreview: true,
			ShowTips:    true,
		})
	}

	if timings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}

	errors, warnings := countSeverities(all)
	if !quiet && analyzeFormat == "pretty" {
		diagfmt.Summary(out, errors, warnings, useColor(colorFlag))
	}
	if errors > 0 {
		cmd.SilenceErrors = true
		return fmt.Errorf("%d error(s) found", errors)
	}
	return nil
}

func countSeverities(diags []diag.Diagnostic) (errors, warnings int) {
	for _, d := range diags {
		switch {
		case d.Severity >= diag.SevError:
			errors++
		case d.Severity == diag.SevWarning:
			warnings++
		}
	}
	return errors, warnings
}
