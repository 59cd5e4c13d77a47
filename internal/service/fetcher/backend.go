package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
)

const (
	workspacePlaceholder = "{workspace}"
	dataSourceParam      = "data_source_id"
	maxErrorBody         = 512
)

var (
	// ErrUnexpectedStatus is returned when the backend answers with a non-2xx code.
	ErrUnexpectedStatus = errors.New("unexpected backend status")

	errBadTime = errors.New("unrecognized time format")
)

// localLayouts are the zone-less layouts some backends emit; they are read as UTC.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// backendTime accepts RFC3339 and zone-less timestamps. Null and "" mean unset.
type backendTime struct {
	value *time.Time
}

func (b *backendTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.value = nil

		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode time: %w", err)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		b.value = nil

		return nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		b.value = &t

		return nil
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			b.value = &t

			return nil
		}
	}

	return fmt.Errorf("%w: %q", errBadTime, raw)
}

// HTTPBackend reads the plant data API over HTTP.
type HTTPBackend struct {
	client          *http.Client
	base            *url.URL
	equipmentPath   string
	measurementPath string
	dataSourcePath  string
}

// NewHTTPBackend creates a backend from validated settings.
// A nil client gets one with the configured timeout.
func NewHTTPBackend(cfg *config.BackendConfig, client *http.Client) (*HTTPBackend, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base_url: %w", err)
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPBackend{
		client:          client,
		base:            base,
		equipmentPath:   cfg.EquipmentPath,
		measurementPath: cfg.MeasurementPath,
		dataSourcePath:  cfg.DataSourcePath,
	}, nil
}

type equipmentRow struct {
	EquipmentCode string      `json:"equipment_code"`
	EquipmentType string      `json:"equipment_type"`
	EquipmentName string      `json:"equipment_name"`
	Status        string      `json:"status"`
	LastRunTime   backendTime `json:"last_run_time"`
}

type measurementRow struct {
	EquipmentCode   string      `json:"equipment_code"`
	MeasurementCode string      `json:"measurement_code"`
	MeasurementDesc string      `json:"measurement_desc"`
	Value           *float64    `json:"value"`
	Timestamp       backendTime `json:"timestamp"`
	SpecStatus      *int        `json:"spec_status"`
	UpperSpecLimit  *float64    `json:"upper_spec_limit"`
	LowerSpecLimit  *float64    `json:"lower_spec_limit"`
	TargetValue     *float64    `json:"target_value"`
	Unit            string      `json:"unit"`
}

type dataSourceRow struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	Active    bool        `json:"active"`
	CreatedAt backendTime `json:"created_at"`
}

// Equipment lists equipment statuses of a workspace. Rows without a code or
// with a field of the wrong type are dropped.
func (b *HTTPBackend) Equipment(ctx context.Context, workspace, dataSourceID string) ([]flow.EquipmentSnapshot, error) {
	raw, err := b.get(ctx, b.equipmentPath, workspace, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("list equipment status: %w", err)
	}

	rows := decodeRows[equipmentRow](ctx, "equipment", raw)

	result := make([]flow.EquipmentSnapshot, 0, len(rows))

	for _, row := range rows {
		if row.EquipmentCode == "" {
			continue
		}

		result = append(result, flow.EquipmentSnapshot{
			EquipmentCode: row.EquipmentCode,
			EquipmentType: row.EquipmentType,
			EquipmentName: row.EquipmentName,
			Status:        flow.EquipmentStatus(row.Status),
			LastRunTime:   row.LastRunTime.value,
		})
	}

	return result, nil
}

// Measurements lists measurement rows of a workspace. Rows without a full key,
// without a value or with a field of the wrong type are dropped; a missing spec
// status means no spec.
func (b *HTTPBackend) Measurements(ctx context.Context, workspace, dataSourceID string) ([]flow.MeasurementSnapshot, error) {
	raw, err := b.get(ctx, b.measurementPath, workspace, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}

	rows := decodeRows[measurementRow](ctx, "measurements", raw)

	result := make([]flow.MeasurementSnapshot, 0, len(rows))

	for _, row := range rows {
		if row.EquipmentCode == "" || row.MeasurementCode == "" || row.Value == nil {
			continue
		}

		m := flow.MeasurementSnapshot{
			EquipmentCode:   row.EquipmentCode,
			MeasurementCode: row.MeasurementCode,
			MeasurementDesc: row.MeasurementDesc,
			Value:           *row.Value,
			SpecStatus:      flow.SpecNone,
			UpperSpecLimit:  row.UpperSpecLimit,
			LowerSpecLimit:  row.LowerSpecLimit,
			TargetValue:     row.TargetValue,
			Unit:            row.Unit,
		}

		if row.Timestamp.value != nil {
			m.Timestamp = *row.Timestamp.value
		}

		if row.SpecStatus != nil {
			m.SpecStatus = flow.ParseSpecStatus(*row.SpecStatus)
		}

		result = append(result, m)
	}

	return result, nil
}

// DataSources lists the data sources of a workspace in backend order.
// Malformed rows are dropped.
func (b *HTTPBackend) DataSources(ctx context.Context, workspace string) ([]DataSource, error) {
	raw, err := b.get(ctx, b.dataSourcePath, workspace, "")
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}

	rows := decodeRows[dataSourceRow](ctx, "data sources", raw)

	result := make([]DataSource, 0, len(rows))

	for _, row := range rows {
		ds := DataSource{
			ID:     row.ID,
			Name:   row.Name,
			Kind:   row.Kind,
			Active: row.Active,
		}

		if row.CreatedAt.value != nil {
			ds.CreatedAt = *row.CreatedAt.value
		}

		result = append(result, ds)
	}

	return result, nil
}

// decodeRows decodes every element on its own so one bad row does not cost its siblings.
func decodeRows[T any](ctx context.Context, list string, raw []json.RawMessage) []T {
	rows := make([]T, 0, len(raw))

	for i, item := range raw {
		var row T
		if err := json.Unmarshal(item, &row); err != nil {
			logger.WarnKV(ctx, "Skipping malformed backend row", "list", list, "index", i, "error", err)

			continue
		}

		rows = append(rows, row)
	}

	return rows
}

func (b *HTTPBackend) get(ctx context.Context, path, workspace, dataSourceID string) ([]json.RawMessage, error) {
	endpoint := b.base.JoinPath(strings.ReplaceAll(path, workspacePlaceholder, url.PathEscape(workspace)))

	if dataSourceID != "" {
		query := endpoint.Query()
		query.Set(dataSourceParam, dataSourceID)
		endpoint.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return rows, nil
}
