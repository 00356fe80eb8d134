package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	dimColor  = color.New(color.Faint)
)

// Pretty renders diagnostics in human-readable form, one block per item:
// the template location and message, the offending template line, the
// composition chain, render points, and the tip. Callers sort the list first
// for deterministic output.
func Pretty(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	prevNoColor := color.NoColor
	color.NoColor = !opts.Color
	defer func() { color.NoColor = prevNoColor }()

	for _, d := range diags {
		writeHeader(w, d, fs, opts)

		final := d.Template()
		if opts.ShowPreview && !final.IsZero() {
			if line := fs.Get(final.File).GetLine(final.Line); line != "" {
				fmt.Fprintf(w, "    %s\n", strings.TrimRight(line, "\n"))
			}
		}
		if opts.ShowChain && d.Chain.Len() > 1 {
			links := d.Chain.Links()
			for _, link := range links[:len(links)-1] {
				fmt.Fprintf(w, "    %s %s:%d\n", dimColor.Sprint("via"), formatLoc(link, fs, opts.PathMode), link.Line)
			}
		}
		for _, rp := range d.RenderPoints {
			fmt.Fprintf(w, "    %s %s:%d\n", dimColor.Sprint("rendered at"), rp.Path, rp.Line)
		}
		if opts.ShowTips && d.Tip != "" {
			fmt.Fprintf(w, "    %s %s\n", infoColor.Sprint("tip:"), d.Tip)
		}
	}
}

func writeHeader(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	sev := severityLabel(d.Severity)

	var ident string
	if d.Identifier != "" {
		ident = dimColor.Sprintf(" [%s]", d.Identifier)
	}

	final := d.Template()
	if final.IsZero() {
		fmt.Fprintf(w, "%s %s: %s%s\n", sev, d.Code.ID(), d.Message, ident)
		return
	}
	fmt.Fprintf(w, "%s:%d: %s %s: %s%s\n",
		formatLoc(final, fs, opts.PathMode), final.Line, sev, d.Code.ID(), d.Message, ident)
}

func severityLabel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return errColor.Sprint("error")
	case diag.SevWarning:
		return warnColor.Sprint("warning")
	default:
		return infoColor.Sprint("info")
	}
}

func formatLoc(loc source.Loc, fs *source.FileSet, mode PathMode) string {
	f := fs.Get(loc.File)
	if f == nil {
		return "<unknown>"
	}
	return f.FormatPath(mode.format(), fs.BaseDir())
}

// Summary prints the closing count line.
func Summary(w io.Writer, errors, warnings int, useColor bool) {
	prevNoColor := color.NoColor
	color.NoColor = !useColor
	defer func() { color.NoColor = prevNoColor }()

	switch {
	case errors == 0 && warnings == 0:
		fmt.Fprintln(w, color.GreenString("no issues found"))
	case errors == 0:
		fmt.Fprintf(w, "%s\n", warnColor.Sprintf("%d warning(s)", warnings))
	default:
		fmt.Fprintf(w, "%s\n", errColor.Sprintf("%d error(s), %d warning(s)", errors, warnings))
	}
}
