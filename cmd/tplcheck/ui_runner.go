package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tplcheck/internal/pipeline"
	"tplcheck/internal/ui"
)

type runOutcome struct {
	result *pipeline.Result
	err    error
}

// runPipelineWithUI executes the pipeline while a Bubble Tea progress view
// consumes its events. The run itself happens in a goroutine; the UI owns
// the terminal until the event channel closes.
func runPipelineWithUI(ctx context.Context, title string, req *pipeline.Request) (*pipeline.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("missing pipeline request")
	}
	templates, err := pipeline.DiscoverTemplates(req.Config, req.Paths)
	if err != nil {
		return nil, err
	}
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Sink = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Run(ctx, reqCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, templates, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
