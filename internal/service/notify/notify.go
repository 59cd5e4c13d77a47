package notify

import (
	"context"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/logger"
)

// Notifier receives alarm events. Implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, events []*alarm.Event)
}

// Multi hands every batch to each notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, events []*alarm.Event) {
	if len(events) == 0 {
		return
	}

	for _, n := range m {
		if n != nil {
			n.Notify(ctx, events)
		}
	}
}

// Log writes each alarm to the logger at warn level.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(ctx context.Context, events []*alarm.Event) {
	for _, e := range events {
		logger.WarnKV(ctx, "Alarm",
			"id", e.ID,
			"equipment", e.EquipmentCode,
			"measurement", e.MeasurementCode,
			"value", e.Value,
			"spec_type", e.SpecType,
			"spec_limit", e.SpecLimit,
			"measured_at", e.Timestamp)
	}
}
