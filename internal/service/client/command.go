package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/logger"
	"github.com/oshokin/flow-monitor/internal/service/common"
)

// Options configures the connection to the monitor.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Attempts bounds retries while the monitor is unreachable. Zero means
	// defaultAttempts.
	Attempts int
}

const (
	// defaultRetryInterval is the delay between attempts to reach the monitor.
	defaultRetryInterval = 1 * time.Second
	// defaultAttempts is how many times an unreachable monitor is retried.
	defaultAttempts = 5
)

// Refresh asks the monitor for a cycle and logs its outcome.
func Refresh(ctx context.Context, opts *Options, force bool) error {
	ctx = logger.WithName(ctx, "refresh")

	return withClient(ctx, opts, func(client *common.Client) error {
		var outcome string

		err := retry(ctx, opts.Attempts, func() error {
			var err error

			outcome, err = client.Refresh(ctx, force)

			return err
		})
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Refresh finished", "force", force, "outcome", outcome)

		return nil
	})
}

// Select switches the monitored flow and logs the resulting view.
func Select(ctx context.Context, opts *Options, flowID string) error {
	ctx = logger.WithName(ctx, "select")

	return withClient(ctx, opts, func(client *common.Client) error {
		err := retry(ctx, opts.Attempts, func() error {
			return client.SelectFlow(ctx, flowID)
		})
		if err != nil {
			return err
		}

		view, err := client.GetView(ctx)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Flow selected",
			"flow_id", view.FlowID,
			"sequence", view.Sequence,
			"nodes", len(view.Nodes),
			"edges", len(view.Edges),
		)

		return nil
	})
}

// Show writes the current view as indented JSON to w.
func Show(ctx context.Context, opts *Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "view")

	return withClient(ctx, opts, func(client *common.Client) error {
		view, err := client.GetView(ctx)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err = encoder.Encode(view); err != nil {
			return fmt.Errorf("write view: %w", err)
		}

		return nil
	})
}

// withClient loads settings, dials the monitor and runs fn.
func withClient(ctx context.Context, opts *Options, fn func(*common.Client) error) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor),
	)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to monitor", "server_address", serverAddress, "actor", actor)

	return fn(client)
}

// retry repeats call while the monitor is unavailable.
func retry(ctx context.Context, attempts int, call func() error) error {
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil || status.Code(err) != codes.Unavailable || attempt >= attempts {
			return err
		}

		logger.WarnKV(ctx, "Monitor is unavailable, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
