package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// ExecRunner invokes the checker binary once per pass and decodes its JSON
// report. Payloads arrive loosely typed and are validated before conversion;
// a malformed record fails the whole invocation since it signals a checker
// version mismatch rather than a per-template problem.
type ExecRunner struct {
	Binary string
	Args   []string
	Dir    string
}

var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) run(ctx context.Context, mode string, files []string, out any) error {
	args := make([]string, 0, len(r.Args)+len(files)+2)
	args = append(args, r.Args...)
	args = append(args, "--mode="+mode, "--")
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, r.Binary, args...) // #nosec G204 -- binary comes from user config
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// The checker exits non-zero when it has findings; a decodable report
	// on stdout wins over the exit status.
	runErr := cmd.Run()
	if decErr := json.Unmarshal(stdout.Bytes(), out); decErr != nil {
		if runErr != nil {
			return fmt.Errorf("checker %s pass failed: %w: %s", mode, runErr, bytes.TrimSpace(stderr.Bytes()))
		}
		return fmt.Errorf("checker %s pass: cannot decode report: %w", mode, decErr)
	}
	return nil
}

// collectEnvelope is the raw shape of a collection report. Data stays raw
// until the collector tag is known.
type collectEnvelope struct {
	Collected []struct {
		File      string          `json:"file"`
		Collector string          `json:"collector"`
		Data      json.RawMessage `json:"data"`
	} `json:"collected"`
	Errors []string `json:"errors"`
}

const (
	collectorRenderCalls = "templateRender"
	collectorVarTypes    = "templateVariables"
)

// Collect runs the collection pass over application files.
func (r *ExecRunner) Collect(ctx context.Context, files []string) (*Collection, error) {
	var env collectEnvelope
	if err := r.run(ctx, "collect", files, &env); err != nil {
		return nil, err
	}

	col := &Collection{Errors: env.Errors}
	for _, rec := range env.Collected {
		switch rec.Collector {
		case collectorRenderCalls:
			call, err := decodeRenderCall(rec.File, rec.Data)
			if err != nil {
				return nil, fmt.Errorf("collector %s in %s: %w", rec.Collector, rec.File, err)
			}
			col.RenderCalls = append(col.RenderCalls, call)
		case collectorVarTypes:
			obs, err := decodeVarObservation(rec.Data)
			if err != nil {
				return nil, fmt.Errorf("collector %s in %s: %w", rec.Collector, rec.File, err)
			}
			col.Observations = append(col.Observations, obs)
		default:
			// Other collectors belong to other consumers.
		}
	}
	return col, nil
}

func decodeRenderCall(file string, data json.RawMessage) (RenderCall, error) {
	var payload struct {
		Template  string `json:"template"`
		StartLine int64  `json:"startLine"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return RenderCall{}, err
	}
	if payload.Template == "" {
		return RenderCall{}, fmt.Errorf("payload has no template")
	}
	if payload.StartLine <= 0 {
		return RenderCall{}, fmt.Errorf("payload has invalid startLine %d", payload.StartLine)
	}
	return RenderCall{
		Template:   payload.Template,
		CallerPath: file,
		CallerLine: uint32(payload.StartLine), // #nosec G115 -- validated positive
	}, nil
}

func decodeVarObservation(data json.RawMessage) (VarObservation, error) {
	var payload struct {
		Template  string            `json:"template"`
		Variables map[string]string `json:"variables"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return VarObservation{}, err
	}
	if payload.Template == "" {
		return VarObservation{}, fmt.Errorf("payload has no template")
	}
	return VarObservation{Template: payload.Template, Vars: payload.Variables}, nil
}

// analysisEnvelope is the raw shape of an analysis report.
type analysisEnvelope struct {
	Diagnostics []struct {
		File       string `json:"file"`
		Line       int64  `json:"line"`
		Message    string `json:"message"`
		Identifier string `json:"identifier"`
		Tip        string `json:"tip"`
	} `json:"diagnostics"`
	Errors []string `json:"errors"`
}

// Analyze runs the analysis pass over generated units.
func (r *ExecRunner) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	var env analysisEnvelope
	if err := r.run(ctx, "analyze", files, &env); err != nil {
		return nil, err
	}
	out := &Analysis{Errors: env.Errors}
	for _, d := range env.Diagnostics {
		if d.Message == "" {
			return nil, fmt.Errorf("diagnostic in %s has no message", d.File)
		}
		line := uint32(0)
		if d.Line > 0 {
			line = uint32(d.Line) // #nosec G115 -- validated positive
		}
		out.Diagnostics = append(out.Diagnostics, RawDiagnostic{
			File:       d.File,
			Line:       line,
			Message:    d.Message,
			Identifier: d.Identifier,
			Tip:        d.Tip,
		})
	}
	return out, nil
}
