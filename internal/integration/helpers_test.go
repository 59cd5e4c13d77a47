package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/service/common"
	"github.com/oshokin/flow-monitor/internal/service/server"
)

const testFlows = `
flows:
  - id: pumps
    name: Pump line
    data_source_id: ds-1
    nodes:
      - {id: n-eq1, kind: equipment, label: Feed pump, equipment_code: EQ1, watch_list: [M1]}
      - {id: n-eq2, kind: equipment, equipment_code: EQ2}
      - {id: n-gauge, kind: instrument, watch_list: [M1]}
    edges:
      - {id: e-1, source: n-eq1, target: n-eq2}
  - id: tanks
    name: Tank farm
    nodes:
      - {id: t-1, kind: equipment, equipment_code: TK1}
`

// plant is a fake backend serving one pressure measurement of EQ1.
type plant struct {
	mu    sync.Mutex
	value float64
}

func (p *plant) setValue(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.value = v
}

func (p *plant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	value := p.value
	p.mu.Unlock()

	status := 0
	if value > 100 {
		status = 2
	}

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/api/workspaces/ws-1/equipment-status":
		_, _ = w.Write([]byte(`[
			{"equipment_code":"EQ1","equipment_name":"Feed pump","status":"ACTIVE"},
			{"equipment_code":"EQ2","equipment_name":"Transfer pump","status":"PAUSE"}
		]`))
	case "/api/workspaces/ws-1/measurements":
		_, _ = fmt.Fprintf(w, `[{"equipment_code":"EQ1","measurement_code":"M1","value":%v,
			"timestamp":"2026-03-01T08:00:00Z","spec_status":%d,
			"upper_spec_limit":100,"lower_spec_limit":10,"unit":"bar"}]`, value, status)
	case "/api/workspaces/ws-1/data-sources":
		_, _ = w.Write([]byte(`[]`))
	default:
		http.NotFound(w, r)
	}
}

// monitor is a running flow-monitor process.
type monitor struct {
	grpcAddress string
	httpAddress string
	configPath  string
	plant       *plant
	done        chan error
}

// reservePort returns a free local address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// startMonitor runs server.Run against a fake plant until the test ends.
func startMonitor(t *testing.T) *monitor {
	t.Helper()

	dir := t.TempDir()
	flowsPath := filepath.Join(dir, "flows.yaml")
	require.NoError(t, os.WriteFile(flowsPath, []byte(testFlows), 0o600))

	p := &plant{value: 80}
	backend := httptest.NewServer(p)
	t.Cleanup(backend.Close)

	m := &monitor{
		grpcAddress: reservePort(t),
		httpAddress: reservePort(t),
		configPath:  filepath.Join(dir, "settings.yaml"),
		plant:       p,
		done:        make(chan error, 1),
	}

	require.NoError(t, config.Save(m.configPath, &config.Config{
		ServerAddress:   m.grpcAddress,
		HTTPAddress:     m.httpAddress,
		Backend:         config.BackendConfig{BaseURL: backend.URL},
		WorkspaceID:     "ws-1",
		RefreshInterval: time.Hour,
		FlowsFile:       flowsPath,
		ViewFile:        filepath.Join(dir, "view.json"),
		Journal:         config.JournalConfig{Driver: config.JournalSQLite, DSN: filepath.Join(dir, "journal.db")},
		Timeout:         3 * time.Second,
	}))

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		m.done <- server.Run(ctx, &server.Options{
			ConfigPath:    m.configPath,
			ListenAddress: m.grpcAddress,
		})
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-m.done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("monitor did not stop")
		}
	})

	// Wait for the HTTP API, which starts together with the first cycle.
	require.Eventually(t, func() bool {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
			"http://"+m.httpAddress+"/api/view", nil)
		if err != nil {
			return false
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)

		return err == nil && resp.StatusCode == http.StatusOK && strings.Contains(string(body), `"ACTIVE"`)
	}, 5*time.Second, 20*time.Millisecond)

	return m
}

// forceRefresh repeats a forced refresh while a cycle is still in flight.
func forceRefresh(t *testing.T, c *common.Client) string {
	t.Helper()

	var outcome string

	require.Eventually(t, func() bool {
		var err error

		outcome, err = c.Refresh(context.Background(), true)

		return err == nil && outcome != "dropped"
	}, 5*time.Second, 20*time.Millisecond)

	return outcome
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
