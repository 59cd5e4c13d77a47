package render

import (
	"context"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
)

// Renderer receives every new view and the per-node transient resets that
// follow a successful forced refresh.
type Renderer interface {
	Render(ctx context.Context, view *flow.View)
	ResetTransient(ctx context.Context, nodeIDs []string)
}

// Multi forwards to each renderer in order.
type Multi []Renderer

// Render implements Renderer.
func (m Multi) Render(ctx context.Context, view *flow.View) {
	for _, r := range m {
		if r != nil {
			r.Render(ctx, view)
		}
	}
}

// ResetTransient implements Renderer.
func (m Multi) ResetTransient(ctx context.Context, nodeIDs []string) {
	for _, r := range m {
		if r != nil {
			r.ResetTransient(ctx, nodeIDs)
		}
	}
}

// ViewSaver persists a view.
type ViewSaver interface {
	Save(ctx context.Context, view *flow.View) error
}

// File writes every view through a ViewSaver. It keeps no transient state.
type File struct {
	saver ViewSaver
}

// NewFile creates a file renderer.
func NewFile(saver ViewSaver) *File {
	return &File{saver: saver}
}

// Render implements Renderer.
func (f *File) Render(ctx context.Context, view *flow.View) {
	if err := f.saver.Save(ctx, view); err != nil {
		logger.ErrorKV(ctx, "Failed to save view", "flow_id", view.FlowID, "sequence", view.Sequence, "error", err)
	}
}

// ResetTransient implements Renderer.
func (*File) ResetTransient(context.Context, []string) {}
