package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/flow-monitor/internal/api/grpc/monitor"
	"github.com/oshokin/flow-monitor/internal/api/web"
	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/logger"
	pb "github.com/oshokin/flow-monitor/internal/pb/v1"
	"github.com/oshokin/flow-monitor/internal/service/instance"
)

// Options controls the monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress overrides the HTTP/WebSocket listen address from settings.
	HTTPAddress string
	// ViewFile overrides the file receiving the derived view.
	ViewFile string
	// Flow overrides the flow selected on start.
	Flow string
	// Dashboard runs the terminal UI in the foreground; quitting it stops the process.
	Dashboard bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the engine and its APIs and blocks until ctx is canceled,
// the dashboard is closed or a component fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "flow-monitor")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	warnAboutOtherInstances(ctx, instance.New(nil))

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	svc, err := newService(ctx, settings, opts)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	defer svc.close(ctx)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	var httpListener net.Listener

	if address := httpAddress(settings, opts); address != "" {
		if httpListener, err = lc.Listen(ctx, "tcp", address); err != nil {
			_ = lis.Close()

			return fmt.Errorf("listen on %s: %w", address, err)
		}
	}

	return serve(ctx, svc, lis, httpListener)
}

// serve runs every component until one of them stops.
func serve(ctx context.Context, svc *service, lis, httpListener net.Listener) error {
	group, groupCtx := errgroup.WithContext(ctx)

	grpcServer := grpc.NewServer()
	pb.RegisterMonitorServiceServer(grpcServer, grpcapi.NewServer(svc.engine, svc.alarms))

	logger.InfoKV(ctx, "Monitor listening", "listen_address", lis.Addr().String())

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		logger.Info(ctx, "GRPC server stopped")

		return nil
	})

	if httpListener != nil {
		router := web.NewRouter(web.Options{
			Service:  svc.engine,
			Hub:      svc.push,
			History:  svc.history(),
			Gatherer: svc.registry,
		})

		group.Go(func() error {
			return web.Serve(groupCtx, httpListener, router)
		})
	}

	group.Go(func() error {
		if err := svc.engine.SelectFlow(groupCtx, svc.initialFlow); err != nil {
			return err
		}

		return svc.engine.Run(groupCtx)
	})

	if svc.dashboard != nil {
		group.Go(func() error {
			if err := svc.dashboard.Run(groupCtx); err != nil {
				return fmt.Errorf("run dashboard: %w", err)
			}

			return errStopped
		})
	}

	err := group.Wait()
	if errors.Is(err, errStopped) {
		return nil
	}

	return err
}

// errStopped unwinds the group when the operator quits the dashboard.
var errStopped = errors.New("dashboard closed")

func warnAboutOtherInstances(ctx context.Context, guard *instance.Guard) {
	pids, err := guard.Others()
	if err != nil {
		logger.WarnKV(ctx, "Failed to look for other monitor instances", "error", err)

		return
	}

	if len(pids) > 0 {
		logger.WarnKV(ctx, "Other monitor instances are running", "pids", pids)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "monitor.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
