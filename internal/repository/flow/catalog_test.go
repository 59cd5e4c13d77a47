package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/flow-monitor/internal/domain/flow"
)

const testCatalog = `
flows:
  - id: pumps
    name: Pump line
    data_source_id: ds-1
    nodes:
      - {id: n-eq1, kind: equipment, label: Feed pump, equipment_code: EQ1, watch_list: [M1, M2]}
      - {id: n-eq2, kind: equipment, equipment_code: EQ2}
      - {id: n-gauge, kind: instrument, watch_list: [M1]}
      - {id: n-note, kind: sticky}
    edges:
      - {id: e-1, source: n-eq1, target: n-eq2}
  - id: tanks
    name: Tank farm
    nodes:
      - {id: t-1, kind: equipment, equipment_code: TK1}
`

// TestLoad reads a catalog file and looks flows up.
func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "pumps", c.Default())
	require.Len(t, c.Flows(), 2)

	f, err := c.Flow("pumps")
	require.NoError(t, err)
	require.Equal(t, "ds-1", f.DataSourceID)
	require.Len(t, f.Nodes, 4)
	require.Equal(t, domain.KindEquipment, f.Nodes[0].Kind)
	require.Equal(t, []string{"M1", "M2"}, f.Nodes[0].WatchList)
	require.Equal(t, domain.NodeKind("sticky"), f.Nodes[3].Kind)
	require.Equal(t, "n-eq2", f.Edges[0].Target)

	tanks, err := c.Flow("tanks")
	require.NoError(t, err)
	require.Empty(t, tanks.DataSourceID)
	require.Empty(t, tanks.Edges)
}

// TestCatalog_FlowReturnsCopy asserts callers cannot modify the catalog.
func TestCatalog_FlowReturnsCopy(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	f, err := c.Flow("pumps")
	require.NoError(t, err)

	f.Nodes[0].WatchList[0] = "changed"
	f.Edges[0].Target = "changed"

	again, err := c.Flow("pumps")
	require.NoError(t, err)
	require.Equal(t, "M1", again.Nodes[0].WatchList[0])
	require.Equal(t, "n-eq2", again.Edges[0].Target)
}

// TestParse_Errors covers every rejected catalog.
func TestParse_Errors(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	_, err = c.Flow("nope")
	require.ErrorIs(t, err, ErrUnknownFlow)

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"empty", "flows: []", ErrNoFlows},
		{"missing flow id", "flows: [{name: x}]", errMissingID},
		{"duplicate flow", "flows: [{id: a}, {id: a}]", errDuplicateID},
		{"duplicate node", "flows: [{id: a, nodes: [{id: n}, {id: n}]}]", errDuplicateID},
		{"missing node id", "flows: [{id: a, nodes: [{kind: text}]}]", errMissingID},
		{"dangling edge", "flows: [{id: a, nodes: [{id: n}], edges: [{id: e, source: n, target: m}]}]", errDanglingEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err = Parse([]byte("flows: {"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
