package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver.
	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/logger"
)

const (
	// DefaultRecentLimit is used by Recent when no positive limit is given.
	DefaultRecentLimit = 50
	// MaxRecentLimit caps a single Recent call.
	MaxRecentLimit = 1000

	table   = "alarm_events"
	columns = "id, equipment_code, equipment_name, measurement_code, measurement_desc, " +
		"value, spec_type, spec_limit, usl, lsl, unit, measured_at, recorded_at"
	columnCount = 13
)

// ErrUnknownDriver is returned for a driver other than sqlite or postgres.
var ErrUnknownDriver = errors.New("unknown journal driver")

// Journal appends alarm events to the alarm_events table.
// Timestamps are stored as unix nanoseconds so both dialects share one schema.
type Journal struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to the configured database and creates the table if needed.
func Open(ctx context.Context, cfg *config.JournalConfig) (*Journal, error) {
	driverName, err := sqlDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if cfg.Driver == config.JournalSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping journal: %w", err)
	}

	j := New(db, cfg.Driver)
	if err = j.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return j, nil
}

// New wraps an open database. driver selects the placeholder dialect.
func New(db *sql.DB, driver string) *Journal {
	return &Journal{
		db:     db,
		driver: driver,
		now:    time.Now,
	}
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Migrate creates the table and its index.
func (j *Journal) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id               TEXT PRIMARY KEY,
			equipment_code   TEXT NOT NULL,
			equipment_name   TEXT NOT NULL,
			measurement_code TEXT NOT NULL,
			measurement_desc TEXT NOT NULL,
			value            DOUBLE PRECISION NOT NULL,
			spec_type        TEXT NOT NULL,
			spec_limit       DOUBLE PRECISION NOT NULL,
			usl              DOUBLE PRECISION,
			lsl              DOUBLE PRECISION,
			unit             TEXT NOT NULL,
			measured_at      BIGINT NOT NULL,
			recorded_at      BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + table + `_recorded_at_idx ON ` + table + ` (recorded_at)`,
	}

	for _, stmt := range statements {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
	}

	return nil
}

// Append stores events in one transaction.
func (j *Journal) Append(ctx context.Context, events []*alarm.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}

	query := "INSERT INTO " + table + " (" + columns + ") VALUES (" + j.placeholders(columnCount) + ")"
	recordedAt := j.now().UnixNano()

	for _, e := range events {
		_, err = tx.ExecContext(ctx, query,
			e.ID,
			e.EquipmentCode,
			e.EquipmentName,
			e.MeasurementCode,
			e.MeasurementDesc,
			e.Value,
			string(e.SpecType),
			e.SpecLimit,
			e.USL,
			e.LSL,
			e.Unit,
			e.Timestamp.UnixNano(),
			recordedAt,
		)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("insert alarm %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit journal transaction: %w", err)
	}

	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*alarm.Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	limit = min(limit, MaxRecentLimit)

	query := "SELECT " + columns + " FROM " + table +
		" ORDER BY recorded_at DESC, measured_at DESC, id LIMIT " + j.placeholders(1)

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var events []*alarm.Event

	for rows.Next() {
		var (
			e          alarm.Event
			specType   string
			usl, lsl   sql.NullFloat64
			measuredAt int64
			recordedAt int64
		)

		err = rows.Scan(
			&e.ID,
			&e.EquipmentCode,
			&e.EquipmentName,
			&e.MeasurementCode,
			&e.MeasurementDesc,
			&e.Value,
			&specType,
			&e.SpecLimit,
			&usl,
			&lsl,
			&e.Unit,
			&measuredAt,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}

		e.SpecType = alarm.SpecType(specType)
		e.Timestamp = time.Unix(0, measuredAt).UTC()

		if usl.Valid {
			e.USL = &usl.Float64
		}

		if lsl.Valid {
			e.LSL = &lsl.Float64
		}

		events = append(events, &e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read journal rows: %w", err)
	}

	return events, nil
}

// Notify records events, logging instead of returning a failure.
// The write outlives the request that triggered the cycle.
func (j *Journal) Notify(ctx context.Context, events []*alarm.Event) {
	if err := j.Append(context.WithoutCancel(ctx), events); err != nil {
		logger.ErrorKV(ctx, "Failed to record alarms in the journal", "alarms", len(events), "error", err)
	}
}

func (j *Journal) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if j.driver == config.JournalPostgres {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}

	return strings.Join(marks, ", ")
}

func sqlDriver(driver string) (string, error) {
	switch driver {
	case config.JournalSQLite:
		return "sqlite", nil
	case config.JournalPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
