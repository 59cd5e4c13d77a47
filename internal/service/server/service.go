package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	grpcapi "github.com/oshokin/flow-monitor/internal/api/grpc/monitor"
	"github.com/oshokin/flow-monitor/internal/api/web"
	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/logger"
	catalog "github.com/oshokin/flow-monitor/internal/repository/flow"
	"github.com/oshokin/flow-monitor/internal/repository/journal"
	"github.com/oshokin/flow-monitor/internal/repository/view"
	"github.com/oshokin/flow-monitor/internal/service/fetcher"
	"github.com/oshokin/flow-monitor/internal/service/metrics"
	"github.com/oshokin/flow-monitor/internal/service/monitor"
	"github.com/oshokin/flow-monitor/internal/service/notify"
	"github.com/oshokin/flow-monitor/internal/service/render"
	"github.com/oshokin/flow-monitor/internal/ui"
)

// service holds the engine and every collaborator that outlives a cycle.
// It is unexported to keep the transports decoupled from the wiring.
type service struct {
	// engine runs the poll cycles.
	engine *monitor.Engine
	// catalog provides the diagram definitions.
	catalog *catalog.Catalog
	// alarms feeds gRPC WatchAlarms streams.
	alarms *grpcapi.Hub
	// push feeds WebSocket clients. Nil when HTTP is disabled.
	push *web.Hub
	// journal records alarms. Nil when not configured.
	journal *journal.Journal
	// webhook posts alarms. Nil when not configured.
	webhook *notify.Webhook
	// dashboard is the terminal UI. Nil unless requested.
	dashboard *ui.Program
	// registry backs /metrics.
	registry *prometheus.Registry
	// initialFlow is selected when the process starts.
	initialFlow string
}

// newService builds the engine and its collaborators from settings.
//
//nolint:cyclop,funlen // Linear wiring of optional components.
func newService(ctx context.Context, settings *config.Config, opts *Options) (*service, error) {
	flows, err := catalog.Load(settings.FlowsFile)
	if err != nil {
		return nil, fmt.Errorf("load flows: %w", err)
	}

	backend, err := fetcher.NewHTTPBackend(&settings.Backend, nil)
	if err != nil {
		return nil, err
	}

	s := &service{
		catalog:  flows,
		alarms:   grpcapi.NewHub(grpcapi.DefaultHubBuffer),
		registry: prometheus.NewRegistry(),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	recorder, err := metrics.NewRecorder(s.registry)
	if err != nil {
		return nil, err
	}

	notifiers := notify.Multi{notify.Log{}, s.alarms}
	renderers := render.Multi{}

	if httpAddress(settings, opts) != "" {
		s.push = web.NewHub()
		notifiers = append(notifiers, s.push)
		renderers = append(renderers, s.push)
	}

	if settings.Journal.Driver != "" {
		if s.journal, err = journal.Open(ctx, &settings.Journal); err != nil {
			return nil, err
		}

		notifiers = append(notifiers, s.journal)
	}

	if settings.Webhook != "" {
		if s.webhook, err = notify.NewWebhook(settings.Webhook, nil); err != nil {
			s.close(ctx)

			return nil, fmt.Errorf("configure webhook: %w", err)
		}

		notifiers = append(notifiers, s.webhook)
	}

	var views *view.FileRepository

	viewFile := settings.ViewFile
	if opts.ViewFile != "" {
		viewFile = opts.ViewFile
	}

	if viewFile != "" {
		views = view.NewFileRepository(viewFile)
		renderers = append(renderers, render.NewFile(views))
	}

	if opts.Dashboard {
		model := ui.NewModel(ctx, ui.RefreshFunc(func(ctx context.Context, force bool) monitor.CycleResult {
			return s.engine.Refresh(ctx, force)
		}))

		s.dashboard = ui.NewProgram(ctx, model)
		notifiers = append(notifiers, s.dashboard)
		renderers = append(renderers, s.dashboard)
	}

	s.initialFlow = pickInitialFlow(ctx, flows, views, settings.InitialFlow, opts.Flow)

	s.engine = monitor.New(
		fetcher.New(backend, settings.WorkspaceID, fetcher.Policy(settings.DataSourcePolicy)),
		flows,
		monitor.WithRenderer(renderers),
		monitor.WithNotifier(notifiers),
		monitor.WithRecorder(recorder),
		monitor.WithInterval(settings.RefreshInterval),
	)

	return s, nil
}

// pickInitialFlow prefers the command line, then settings, then the flow of
// the last saved view, then the first catalog entry.
func pickInitialFlow(
	ctx context.Context,
	flows *catalog.Catalog,
	views *view.FileRepository,
	configured, override string,
) string {
	switch {
	case override != "":
		return override
	case configured != "":
		return configured
	case views == nil:
		return flows.Default()
	}

	last, err := views.Load(ctx)
	switch {
	case err == nil:
		if _, err = flows.Flow(last.FlowID); err == nil {
			logger.InfoKV(ctx, "Resuming last viewed flow", "flow_id", last.FlowID, "view_file", views.Path())

			return last.FlowID
		}
	case errors.Is(err, view.ErrNotFound):
		// Keep default flow.
	default:
		logger.WarnKV(ctx, "Failed to read last view", "view_file", views.Path(), "error", err)
	}

	return flows.Default()
}

// close releases optional collaborators. Pending webhook deliveries finish first.
func (s *service) close(ctx context.Context) {
	if s.push != nil {
		s.push.Close()
	}

	if s.webhook != nil {
		s.webhook.Wait()
	}

	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			logger.ErrorKV(ctx, "Failed to close alarm journal", "error", err)
		}
	}
}

// history returns the journal as a web.AlarmHistory, keeping nil untyped.
func (s *service) history() web.AlarmHistory {
	if s.journal == nil {
		return nil
	}

	return s.journal
}

func httpAddress(settings *config.Config, opts *Options) string {
	if opts.HTTPAddress != "" {
		return opts.HTTPAddress
	}

	return settings.HTTPAddress
}
