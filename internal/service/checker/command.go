package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/logger"
	"github.com/oshokin/flow-monitor/internal/service/common"
)

// Options controls the alarm watcher.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// ReconnectInterval is the delay before reopening a broken stream.
	ReconnectInterval time.Duration
	// Output receives one JSON line per alarm. Nil only logs.
	Output io.Writer
}

// DefaultReconnectInterval is used when Options.ReconnectInterval is unset.
const DefaultReconnectInterval = 5 * time.Second

// watcher is the part of common.Client the loop depends on.
type watcher interface {
	WatchAlarms(ctx context.Context, handle func(*alarm.Event) error) error
}

// Run follows the alarm stream until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarms")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	client, err := common.Dial(ctx, serverAddress, common.WithActor(actor))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching alarms", "server_address", serverAddress)

	return watch(ctx, client, opts)
}

// watch reopens the stream after every failure until ctx ends.
func watch(ctx context.Context, client watcher, opts *Options) error {
	interval := opts.ReconnectInterval
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}

	handle := func(event *alarm.Event) error {
		return report(ctx, opts.Output, event)
	}

	for {
		err := client.WatchAlarms(ctx, handle)
		if ctx.Err() != nil {
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		}

		if err != nil {
			logger.ErrorKV(ctx, "Alarm stream failed", "error", err)
		} else {
			logger.Warn(ctx, "Alarm stream closed by the monitor")
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-time.After(interval):
		}
	}
}

func report(ctx context.Context, w io.Writer, event *alarm.Event) error {
	logger.WarnKV(ctx, "Alarm",
		"equipment", event.EquipmentCode,
		"measurement", event.MeasurementCode,
		"value", event.Value,
		"spec_type", event.SpecType,
		"limit", event.SpecLimit,
		"timestamp", event.Timestamp.Format(time.RFC3339),
	)

	if w == nil {
		return nil
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode alarm: %w", err)
	}

	if _, err = fmt.Fprintln(w, string(line)); err != nil {
		return fmt.Errorf("write alarm: %w", err)
	}

	return nil
}
