package flow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/flow-monitor/internal/domain/flow"
)

var (
	// ErrUnknownFlow is returned for an id that is not in the catalog.
	ErrUnknownFlow = errors.New("unknown flow")
	// ErrNoFlows is returned when the catalog defines no flow.
	ErrNoFlows = errors.New("flow catalog is empty")

	errDuplicateID = errors.New("duplicate id")
	errMissingID   = errors.New("missing id")
	errDanglingEnd = errors.New("edge references an unknown node")
)

type catalogFile struct {
	Flows []flowEntry `yaml:"flows"`
}

type flowEntry struct {
	ID           string      `yaml:"id"`
	Name         string      `yaml:"name"`
	DataSourceID string      `yaml:"data_source_id"`
	Nodes        []nodeEntry `yaml:"nodes"`
	Edges        []edgeEntry `yaml:"edges"`
}

type nodeEntry struct {
	ID            string   `yaml:"id"`
	Kind          string   `yaml:"kind"`
	Label         string   `yaml:"label"`
	EquipmentCode string   `yaml:"equipment_code"`
	WatchList     []string `yaml:"watch_list"`
}

type edgeEntry struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Catalog is an immutable set of flows in file order.
type Catalog struct {
	flows []domain.Flow
	byID  map[string]int
}

// Load reads and checks a catalog file.
func Load(path string) (*Catalog, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read flow catalog: %w", err)
	}

	return Parse(contents)
}

// Parse decodes a catalog. Edges pointing at unknown nodes are rejected;
// unknown node kinds are kept and treated as annotations by the engine.
func Parse(contents []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("unmarshal flow catalog: %w", err)
	}

	if len(file.Flows) == 0 {
		return nil, ErrNoFlows
	}

	catalog := &Catalog{
		flows: make([]domain.Flow, 0, len(file.Flows)),
		byID:  make(map[string]int, len(file.Flows)),
	}

	for i := range file.Flows {
		f, err := toDomain(&file.Flows[i])
		if err != nil {
			return nil, err
		}

		if _, dup := catalog.byID[f.ID]; dup {
			return nil, fmt.Errorf("flow %q: %w", f.ID, errDuplicateID)
		}

		catalog.byID[f.ID] = len(catalog.flows)
		catalog.flows = append(catalog.flows, f)
	}

	return catalog, nil
}

// Flow returns a copy of the flow with the given id.
func (c *Catalog) Flow(id string) (*domain.Flow, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, id)
	}

	f := clone(&c.flows[i])

	return &f, nil
}

// Flows lists every flow in file order.
func (c *Catalog) Flows() []domain.Flow {
	out := make([]domain.Flow, 0, len(c.flows))
	for i := range c.flows {
		out = append(out, clone(&c.flows[i]))
	}

	return out
}

// Default returns the id of the first flow.
func (c *Catalog) Default() string {
	return c.flows[0].ID
}

func toDomain(entry *flowEntry) (domain.Flow, error) {
	if entry.ID == "" {
		return domain.Flow{}, fmt.Errorf("flow: %w", errMissingID)
	}

	f := domain.Flow{
		ID:           entry.ID,
		Name:         entry.Name,
		DataSourceID: entry.DataSourceID,
		Nodes:        make([]domain.Node, 0, len(entry.Nodes)),
		Edges:        make([]domain.Edge, 0, len(entry.Edges)),
	}

	nodes := make(map[string]struct{}, len(entry.Nodes))

	for _, n := range entry.Nodes {
		if n.ID == "" {
			return domain.Flow{}, fmt.Errorf("flow %q node: %w", entry.ID, errMissingID)
		}

		if _, dup := nodes[n.ID]; dup {
			return domain.Flow{}, fmt.Errorf("flow %q node %q: %w", entry.ID, n.ID, errDuplicateID)
		}

		nodes[n.ID] = struct{}{}

		f.Nodes = append(f.Nodes, domain.Node{
			ID:            n.ID,
			Kind:          domain.NodeKind(n.Kind),
			Label:         n.Label,
			EquipmentCode: n.EquipmentCode,
			WatchList:     n.WatchList,
		})
	}

	for _, e := range entry.Edges {
		if e.ID == "" {
			return domain.Flow{}, fmt.Errorf("flow %q edge: %w", entry.ID, errMissingID)
		}

		for _, end := range []string{e.Source, e.Target} {
			if _, ok := nodes[end]; !ok {
				return domain.Flow{}, fmt.Errorf("flow %q edge %q -> %q: %w", entry.ID, e.ID, end, errDanglingEnd)
			}
		}

		f.Edges = append(f.Edges, domain.Edge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
		})
	}

	return f, nil
}

func clone(f *domain.Flow) domain.Flow {
	out := *f
	out.Nodes = make([]domain.Node, len(f.Nodes))
	out.Edges = append([]domain.Edge(nil), f.Edges...)

	for i := range f.Nodes {
		out.Nodes[i] = *f.Nodes[i].Clone()
	}

	return out
}
