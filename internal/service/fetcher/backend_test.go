package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

func newTestBackend(t *testing.T, handler http.Handler) *HTTPBackend {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.BackendConfig{
		BaseURL:         srv.URL,
		EquipmentPath:   "/ws/{workspace}/equipment",
		MeasurementPath: "/ws/{workspace}/measurements",
		DataSourcePath:  "/ws/{workspace}/sources",
	}

	b, err := NewHTTPBackend(cfg, srv.Client())
	require.NoError(t, err)

	return b
}

// TestHTTPBackend_Equipment checks scoping, decoding and malformed-row skipping.
func TestHTTPBackend_Equipment(t *testing.T) {
	t.Parallel()

	var gotPath, gotScope string

	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotScope = r.URL.Path, r.URL.Query().Get(dataSourceParam)
		_, _ = w.Write([]byte(`[
			{"equipment_code":"EQ1","equipment_name":"Feed pump","status":"ACTIVE","last_run_time":"2026-03-01T08:00:00Z"},
			{"equipment_name":"no code","status":"STOP"},
			{"equipment_code":"EQ2"}
		]`))
	}))

	rows, err := b.Equipment(context.Background(), "plant-7", "ds-1")
	require.NoError(t, err)

	require.Equal(t, "/ws/plant-7/equipment", gotPath)
	require.Equal(t, "ds-1", gotScope)
	require.Len(t, rows, 2)
	require.Equal(t, flow.StatusActive, rows[0].Status)
	require.NotNil(t, rows[0].LastRunTime)
	require.Nil(t, rows[1].LastRunTime)
	require.Empty(t, rows[1].Status)
}

// TestHTTPBackend_Measurements checks optional fields and dropped rows.
func TestHTTPBackend_Measurements(t *testing.T) {
	t.Parallel()

	var gotQuery string

	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"equipment_code":"EQ1","measurement_code":"M1","value":120.5,"timestamp":"2026-03-01T08:00:00Z",
			 "spec_status":2,"upper_spec_limit":100,"unit":"bar"},
			{"equipment_code":"EQ1","measurement_code":"M2","value":3},
			{"equipment_code":"EQ1","measurement_code":"M3","value":1,"spec_status":42},
			{"equipment_code":"EQ1","measurement_code":"M4"},
			{"measurement_code":"M5","value":1}
		]`))
	}))

	rows, err := b.Measurements(context.Background(), "plant-7", "")
	require.NoError(t, err)
	require.Empty(t, gotQuery)
	require.Len(t, rows, 3)

	m1 := rows[0]
	require.InDelta(t, 120.5, m1.Value, 0)
	require.Equal(t, flow.SpecAbove, m1.SpecStatus)
	require.NotNil(t, m1.UpperSpecLimit)
	require.Nil(t, m1.LowerSpecLimit)
	require.False(t, m1.Timestamp.IsZero())

	require.Equal(t, flow.SpecNone, rows[1].SpecStatus)
	require.True(t, rows[1].Timestamp.IsZero())
	require.Equal(t, flow.SpecNone, rows[2].SpecStatus)
}

// TestHTTPBackend_SkipsTypeMalformedRows keeps valid siblings of rows that do not decode.
func TestHTTPBackend_SkipsTypeMalformedRows(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ws/plant-7/equipment":
			_, _ = w.Write([]byte(`[
				{"equipment_code":"EQ1","status":"ACTIVE","last_run_time":""},
				{"equipment_code":"EQ2","status":"PAUSE","last_run_time":"2026-03-01T08:00:00"},
				{"equipment_code":"EQ3","status":"STOP","last_run_time":"yesterday"},
				{"equipment_code":42,"status":"ACTIVE"},
				"not an object"
			]`))
		case "/ws/plant-7/measurements":
			_, _ = w.Write([]byte(`[
				{"equipment_code":"EQ1","measurement_code":"M1","value":"n/a"},
				{"equipment_code":"EQ1","measurement_code":"M2","value":5,"timestamp":"2026-03-01 08:00:00"},
				{"equipment_code":"EQ1","measurement_code":"M3","value":7,"spec_status":"high"}
			]`))
		default:
			_, _ = w.Write([]byte(`[{"id":"a","active":"yes"},{"id":"b","active":true,"created_at":""}]`))
		}
	}))

	equipment, err := b.Equipment(context.Background(), "plant-7", "")
	require.NoError(t, err)
	require.Len(t, equipment, 2)
	require.Equal(t, "EQ1", equipment[0].EquipmentCode)
	require.Nil(t, equipment[0].LastRunTime)
	require.Equal(t, "EQ2", equipment[1].EquipmentCode)
	require.NotNil(t, equipment[1].LastRunTime)
	require.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), *equipment[1].LastRunTime)

	measurements, err := b.Measurements(context.Background(), "plant-7", "")
	require.NoError(t, err)
	require.Len(t, measurements, 1)
	require.Equal(t, "M2", measurements[0].MeasurementCode)
	require.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), measurements[0].Timestamp)

	sources, err := b.DataSources(context.Background(), "plant-7")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, "b", sources[0].ID)
	require.True(t, sources[0].CreatedAt.IsZero())
}

// TestBackendTime covers the accepted timestamp forms.
func TestBackendTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for _, input := range []string{
		`"2026-03-01T08:00:00Z"`,
		`"2026-03-01T10:00:00+02:00"`,
		`"2026-03-01T08:00:00"`,
		`"2026-03-01 08:00:00.000"`,
	} {
		var bt backendTime
		require.NoError(t, json.Unmarshal([]byte(input), &bt), input)
		require.NotNil(t, bt.value, input)
		require.True(t, want.Equal(*bt.value), input)
	}

	for _, input := range []string{`null`, `""`, `"  "`} {
		var bt backendTime
		require.NoError(t, json.Unmarshal([]byte(input), &bt), input)
		require.Nil(t, bt.value, input)
	}

	var bt backendTime
	require.ErrorIs(t, json.Unmarshal([]byte(`"01/03/2026"`), &bt), errBadTime)
	require.Error(t, json.Unmarshal([]byte(`17`), &bt))
}

// TestHTTPBackend_DataSources checks decoding of the listing.
func TestHTTPBackend_DataSources(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a","kind":"default","active":true},{"id":"b","kind":"opc","active":true,"created_at":"2026-01-01T00:00:00Z"}]`))
	}))

	sources, err := b.DataSources(context.Background(), "plant-7")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Equal(t, "b", Resolve(sources, PolicyFirst))
}

// TestHTTPBackend_Errors checks status and decoding failures.
func TestHTTPBackend_Errors(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws/plant-7/equipment" {
			http.Error(w, "boom", http.StatusBadGateway)

			return
		}

		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))

	_, err := b.Equipment(context.Background(), "plant-7", "")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Contains(t, err.Error(), "502")

	_, err = b.Measurements(context.Background(), "plant-7", "")
	require.ErrorContains(t, err, "decode response")
}
