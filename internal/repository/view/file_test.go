package view

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	v, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, v)
}

// TestFileRepository_SaveLoad ensures Save followed by Load returns an equal view.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "view.json")
	repo := NewFileRepository(file)

	want := &flow.View{
		FlowID:    "pumps",
		FlowName:  "Pump line",
		Sequence:  3,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Nodes: []*flow.Node{{
			ID:     "n-eq1",
			Kind:   flow.KindEquipment,
			Status: flow.StatusPause,
		}},
		Edges: []*flow.Edge{{ID: "e-1", Source: "n-eq1", Target: "n-eq2"}},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.FlowID, got.FlowID)
	require.Equal(t, want.Sequence, got.Sequence)
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	require.Equal(t, want.Nodes, got.Nodes)
	require.Equal(t, want.Edges, got.Edges)

	_, err = os.Stat(file + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFileRepository_Corrupted verifies decoding errors are reported.
func TestFileRepository_Corrupted(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "view.json")
	require.NoError(t, os.WriteFile(file, []byte("{"), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.ErrorContains(t, err, "decode view file")
}
