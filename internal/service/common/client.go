//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcapi "github.com/oshokin/flow-monitor/internal/api/grpc/monitor"
	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	pb "github.com/oshokin/flow-monitor/internal/pb/v1"
)

// Client wraps the gRPC MonitorService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the monitor.
	conn *grpc.ClientConn
	// api is the MonitorService client interface.
	api pb.MonitorServiceClient

	// callTimeout is the default timeout for unary calls. Streams are not bounded.
	callTimeout time.Duration
	// actor is sent as metadata on every call.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor identifies the operator in the server logs.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errFlowRequired is returned when a flow id is empty.
	errFlowRequired = errors.New("flow id must be provided")
	// errHandlerRequired is returned when WatchAlarms has no handler.
	errHandlerRequired = errors.New("alarm handler must be provided")
)

// Dial establishes a gRPC connection to the monitor.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial monitor: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewMonitorServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Refresh asks the monitor to run a cycle and returns its outcome.
func (c *Client) Refresh(ctx context.Context, force bool) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Refresh(callCtx, wrapperspb.Bool(force))
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}

	return resp.GetValue(), nil
}

// SelectFlow switches the monitored diagram.
func (c *Client) SelectFlow(ctx context.Context, id string) error {
	if id == "" {
		return errFlowRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.SelectFlow(callCtx, wrapperspb.String(id)); err != nil {
		return fmt.Errorf("select flow: %w", err)
	}

	return nil
}

// GetView fetches the current derived view.
func (c *Client) GetView(ctx context.Context) (*flow.View, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	doc, err := c.api.GetView(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get view: %w", err)
	}

	view, err := pb.ViewFromStruct(doc)
	if err != nil {
		return nil, fmt.Errorf("decode view: %w", err)
	}

	return view, nil
}

// WatchAlarms streams alarms into handle until ctx ends, the server closes
// the stream or handle fails. A clean end of stream returns nil.
func (c *Client) WatchAlarms(ctx context.Context, handle func(*alarm.Event) error) error {
	if handle == nil {
		return errHandlerRequired
	}

	stream, err := c.api.WatchAlarms(c.withActor(ctx), new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("watch alarms: %w", err)
	}

	for {
		doc, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("receive alarm: %w", err)
		}

		event, err := pb.EventFromStruct(doc)
		if err != nil {
			return fmt.Errorf("decode alarm: %w", err)
		}

		if err = handle(event); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = c.withActor(ctx)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Client) withActor(ctx context.Context) context.Context {
	if c.actor == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, grpcapi.ActorMetadataKey, c.actor)
}
