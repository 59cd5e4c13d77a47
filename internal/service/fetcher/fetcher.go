package fetcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
)

// Backend is the read-only plant data API.
type Backend interface {
	Equipment(ctx context.Context, workspace, dataSourceID string) ([]flow.EquipmentSnapshot, error)
	Measurements(ctx context.Context, workspace, dataSourceID string) ([]flow.MeasurementSnapshot, error)
	DataSources(ctx context.Context, workspace string) ([]DataSource, error)
}

// Fetcher reads both snapshot lists of a workspace as one unit.
type Fetcher struct {
	backend   Backend
	workspace string
	policy    Policy
}

// New creates a fetcher scoped to workspace.
func New(backend Backend, workspace string, policy Policy) *Fetcher {
	if policy == "" {
		policy = PolicyFirst
	}

	return &Fetcher{
		backend:   backend,
		workspace: workspace,
		policy:    policy,
	}
}

// Fetch issues the equipment and measurement reads concurrently and returns
// both lists, or an error if either read failed. An empty dataSourceID is
// resolved from the workspace listing; a failed resolution reads unscoped.
func (f *Fetcher) Fetch(ctx context.Context, dataSourceID string) (*flow.Snapshot, error) {
	if dataSourceID == "" {
		dataSourceID = f.resolve(ctx)
	}

	var snap flow.Snapshot

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		rows, err := f.backend.Equipment(groupCtx, f.workspace, dataSourceID)
		snap.Equipment = rows

		return err
	})

	group.Go(func() error {
		rows, err := f.backend.Measurements(groupCtx, f.workspace, dataSourceID)
		snap.Measurements = rows

		return err
	})

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("fetch workspace %q: %w", f.workspace, err)
	}

	return &snap, nil
}

func (f *Fetcher) resolve(ctx context.Context) string {
	sources, err := f.backend.DataSources(ctx, f.workspace)
	if err != nil {
		logger.WarnKV(ctx, "Data source resolution failed, reading unscoped", "workspace", f.workspace, "error", err)

		return ""
	}

	id := Resolve(sources, f.policy)
	if id == "" {
		logger.DebugKV(ctx, "No eligible data source, reading unscoped", "workspace", f.workspace, "listed", len(sources))
	}

	return id
}
