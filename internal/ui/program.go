package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
)

const programBuffer = 64

// Program runs the dashboard and accepts engine output. Engine calls never
// block: messages go through a buffer and are dropped when it is full.
type Program struct {
	program *tea.Program
	msgs    chan tea.Msg
}

// NewProgram wraps model in a full-screen bubbletea program.
func NewProgram(ctx context.Context, model Model, opts ...tea.ProgramOption) *Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)

	return &Program{
		program: tea.NewProgram(model, opts...),
		msgs:    make(chan tea.Msg, programBuffer),
	}
}

// Run blocks until the user quits or ctx is cancelled. A cancelled ctx is a
// clean exit.
func (p *Program) Run(ctx context.Context) error {
	forwardCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go p.forward(forwardCtx)

	if _, err := p.program.Run(); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

// Render implements the engine renderer.
func (p *Program) Render(ctx context.Context, view *flow.View) {
	p.enqueue(ctx, ViewMsg{View: view})
}

// ResetTransient implements the engine renderer.
func (p *Program) ResetTransient(ctx context.Context, nodeIDs []string) {
	p.enqueue(ctx, ResetMsg{NodeIDs: nodeIDs})
}

// Notify implements the engine notifier.
func (p *Program) Notify(ctx context.Context, events []*alarm.Event) {
	if len(events) == 0 {
		return
	}

	p.enqueue(ctx, AlarmMsg{Events: events})
}

func (p *Program) enqueue(ctx context.Context, msg tea.Msg) {
	select {
	case p.msgs <- msg:
	default:
		logger.Warnf(ctx, "Dashboard is lagging, dropped %T", msg)
	}
}

func (p *Program) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.program.Quit()

			return
		case msg := <-p.msgs:
			p.program.Send(msg)
		}
	}
}
