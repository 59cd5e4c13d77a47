package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every flow-monitor subcommand.
type Config struct {
	// ServerAddress is the gRPC address of the monitor (host:port).
	// The server listens on its port, clients dial it as is.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress is the listen address of the HTTP/WebSocket API. Empty disables it.
	HTTPAddress string `yaml:"http_addr"`
	// Backend describes the read-only plant data API.
	Backend BackendConfig `yaml:"backend"`
	// WorkspaceID scopes every backend read.
	WorkspaceID string `yaml:"workspace_id"`
	// DataSourcePolicy picks the fallback data source when a flow has none: "first" or "newest".
	DataSourcePolicy string `yaml:"data_source_policy"`
	// RefreshInterval is the configured auto-refresh period. Values below
	// the scheduler floor are clamped at runtime, not rejected here.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// FlowsFile is the YAML catalog of diagrams produced by the editor.
	FlowsFile string `yaml:"flows_file"`
	// InitialFlow is the flow selected on start. Empty means the first catalog entry.
	InitialFlow string `yaml:"initial_flow"`
	// ViewFile, when set, receives the derived diagram view after every change.
	ViewFile string `yaml:"view_file"`
	// Journal configures the optional alarm journal.
	Journal JournalConfig `yaml:"journal"`
	// Webhook, when set, receives every alarm as a JSON POST.
	Webhook string `yaml:"webhook"`
	// Timeout is the per-RPC timeout used by the CLI clients.
	Timeout time.Duration `yaml:"timeout"`
}

// BackendConfig locates the equipment, measurement and data-source endpoints.
// Paths may contain the {workspace} placeholder.
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url"`
	EquipmentPath   string        `yaml:"equipment_path"`
	MeasurementPath string        `yaml:"measurement_path"`
	DataSourcePath  string        `yaml:"data_source_path"`
	Timeout         time.Duration `yaml:"timeout"`
}

// JournalConfig selects the database used to record emitted alarms.
type JournalConfig struct {
	// Driver is "sqlite" or "postgres". Empty disables the journal.
	Driver string `yaml:"driver"`
	// DSN is the driver-specific data source name (a file path for sqlite).
	DSN string `yaml:"dsn"`
}

const (
	// DefaultConfigFilename is the default filename for monitor settings.
	DefaultConfigFilename = "flow-monitor-settings.yaml"

	// DefaultFlowsFilename is the default filename of the flow catalog.
	DefaultFlowsFilename = "flow-monitor-flows.yaml"

	// DefaultServerAddress is used when no gRPC address is configured.
	DefaultServerAddress = "127.0.0.1:50061"

	// DefaultRefreshInterval is the auto-refresh period used when none is configured.
	DefaultRefreshInterval = 30 * time.Second

	// DefaultBackendTimeout bounds a single backend read.
	DefaultBackendTimeout = 10 * time.Second

	// DefaultTimeout is the default duration for CLI RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	// PolicyFirst selects the first eligible data source in listing order.
	PolicyFirst = "first"
	// PolicyNewest selects the most recently created eligible data source.
	PolicyNewest = "newest"

	// JournalSQLite stores the journal in a local sqlite file.
	JournalSQLite = "sqlite"
	// JournalPostgres stores the journal in PostgreSQL.
	JournalPostgres = "postgres"

	defaultEquipmentPath   = "/api/workspaces/{workspace}/equipment-status"
	defaultMeasurementPath = "/api/workspaces/{workspace}/measurements"
	defaultDataSourcePath  = "/api/workspaces/{workspace}/data-sources"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBackendRequired is returned when the backend base URL is missing.
	errBackendRequired = errors.New("backend base_url must be provided")
	// errWorkspaceRequired is returned when no workspace is configured.
	errWorkspaceRequired = errors.New("workspace_id must be provided")
	// errUnknownPolicy is returned for an unsupported data source policy.
	errUnknownPolicy = errors.New("unknown data_source_policy")
	// errUnknownJournal is returned for an unsupported journal driver.
	errUnknownJournal = errors.New("unknown journal driver")
	// errJournalDSN is returned when a journal driver has no DSN.
	errJournalDSN = errors.New("journal dsn must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting
// and fills in defaults for everything optional.
//
//nolint:cyclop // A flat list of field checks reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		settings.ServerAddress = DefaultServerAddress
	}

	if _, _, err := net.SplitHostPort(settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, _, err := net.SplitHostPort(settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http address: %w", err)
		}
	}

	if err := validateBackend(&settings.Backend); err != nil {
		return err
	}

	if strings.TrimSpace(settings.WorkspaceID) == "" {
		return errWorkspaceRequired
	}

	switch settings.DataSourcePolicy {
	case "":
		settings.DataSourcePolicy = PolicyFirst
	case PolicyFirst, PolicyNewest:
	default:
		return fmt.Errorf("%w: %q", errUnknownPolicy, settings.DataSourcePolicy)
	}

	if settings.RefreshInterval <= 0 {
		settings.RefreshInterval = DefaultRefreshInterval
	}

	if settings.FlowsFile == "" {
		settings.FlowsFile = DefaultFlowsFilename
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	switch settings.Journal.Driver {
	case "":
	case JournalSQLite, JournalPostgres:
		if settings.Journal.DSN == "" {
			return errJournalDSN
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownJournal, settings.Journal.Driver)
	}

	if settings.Webhook != "" {
		if _, err := url.ParseRequestURI(settings.Webhook); err != nil {
			return fmt.Errorf("invalid webhook URI: %w", err)
		}
	}

	return nil
}

func validateBackend(backend *BackendConfig) error {
	if backend.BaseURL == "" {
		return errBackendRequired
	}

	u, err := url.ParseRequestURI(backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend base_url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend base_url scheme %q", u.Scheme)
	}

	if backend.EquipmentPath == "" {
		backend.EquipmentPath = defaultEquipmentPath
	}

	if backend.MeasurementPath == "" {
		backend.MeasurementPath = defaultMeasurementPath
	}

	if backend.DataSourcePath == "" {
		backend.DataSourcePath = defaultDataSourcePath
	}

	if backend.Timeout < 0 {
		backend.Timeout = 0
	} else if backend.Timeout == 0 {
		backend.Timeout = DefaultBackendTimeout
	}

	return nil
}
