package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
	catalog "github.com/oshokin/flow-monitor/internal/repository/flow"
	"github.com/oshokin/flow-monitor/internal/service/monitor"
)

// Service abstracts the engine operations exposed over HTTP.
type Service interface {
	Refresh(ctx context.Context, force bool) monitor.CycleResult
	SelectFlow(ctx context.Context, id string) error
	View() *flow.View
	Flows() []flow.Flow
}

// AlarmHistory reads journaled alarms.
type AlarmHistory interface {
	Recent(ctx context.Context, limit int) ([]*alarm.Event, error)
}

// Options configures the router.
type Options struct {
	Service Service
	Hub     *Hub
	// History is optional; without it /api/alarms answers 501.
	History AlarmHistory
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// FlowSummary is a catalog entry as listed by /api/flows.
type FlowSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DataSourceID string `json:"data_source_id,omitempty"`
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
}

// RefreshResponse reports a cycle outcome.
type RefreshResponse struct {
	Sequence      uint64   `json:"sequence"`
	Outcome       string   `json:"outcome"`
	Reason        string   `json:"reason,omitempty"`
	ChangedNodes  []string `json:"changed_nodes,omitempty"`
	ChangedEdges  int      `json:"changed_edges"`
	Alarms        int      `json:"alarms"`
	StatusChanged bool     `json:"status_changed"`
	// MeasurementChanged is true when any measurement row differed.
	MeasurementChanged bool `json:"measurement_changed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	service Service
	history AlarmHistory
}

// NewRouter builds the gin engine serving the HTTP API.
func NewRouter(opts Options) *gin.Engine {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &handler{
		service: opts.Service,
		history: opts.History,
	}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.GET("/view", h.view)
	api.POST("/refresh", h.refresh)
	api.GET("/flows", h.flows)
	api.POST("/flows/:id/select", h.selectFlow)
	api.GET("/alarms", h.alarms)

	if opts.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			opts.Hub.Serve(c.Writer, c.Request)
		})
	}

	return router
}

func (h *handler) view(c *gin.Context) {
	view := h.service.View()
	if view == nil {
		c.JSON(http.StatusNotFound, &errorResponse{Error: monitor.ErrNoFlowSelected.Error()})

		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *handler) refresh(c *gin.Context) {
	force, err := queryBool(c, "force")
	if err != nil {
		c.JSON(http.StatusBadRequest, &errorResponse{Error: err.Error()})

		return
	}

	result := h.service.Refresh(c.Request.Context(), force)
	if result.Outcome == monitor.OutcomeFailed {
		c.JSON(http.StatusInternalServerError, &errorResponse{Error: result.Err.Error()})

		return
	}

	c.JSON(http.StatusOK, &RefreshResponse{
		Sequence:           result.Sequence,
		Outcome:            string(result.Outcome),
		Reason:             result.Reason,
		ChangedNodes:       result.ChangedNodes,
		ChangedEdges:       result.ChangedEdges,
		Alarms:             len(result.Alarms),
		StatusChanged:      result.StatusChanged,
		MeasurementChanged: result.MeasurementChanged,
	})
}

func (h *handler) flows(c *gin.Context) {
	flows := h.service.Flows()

	result := make([]*FlowSummary, 0, len(flows))
	for i := range flows {
		result = append(result, &FlowSummary{
			ID:           flows[i].ID,
			Name:         flows[i].Name,
			DataSourceID: flows[i].DataSourceID,
			Nodes:        len(flows[i].Nodes),
			Edges:        len(flows[i].Edges),
		})
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) selectFlow(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	err := h.service.SelectFlow(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.service.View())
	case errors.Is(err, catalog.ErrUnknownFlow):
		c.JSON(http.StatusNotFound, &errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, &errorResponse{Error: err.Error()})
	}
}

func (h *handler) alarms(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, &errorResponse{Error: "alarm journal is not configured"})

		return
	}

	limit := 0

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, &errorResponse{Error: "limit must be a non-negative integer"})

			return
		}

		limit = parsed
	}

	events, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.ErrorKV(c.Request.Context(), "Failed to read alarm journal", "error", err)
		c.JSON(http.StatusInternalServerError, &errorResponse{Error: err.Error()})

		return
	}

	if events == nil {
		events = []*alarm.Event{}
	}

	c.JSON(http.StatusOK, events)
}

func queryBool(c *gin.Context, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New(key + " must be a boolean")
	}

	return value, nil
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.DebugKV(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"remote", c.ClientIP(),
		)
	}
}
