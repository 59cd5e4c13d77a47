package pb

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

// ViewToStruct encodes a view as a Struct using its JSON field names.
func ViewToStruct(view *flow.View) (*structpb.Struct, error) {
	return toStruct(view)
}

// ViewFromStruct decodes a view produced by ViewToStruct.
func ViewFromStruct(s *structpb.Struct) (*flow.View, error) {
	var view flow.View
	if err := fromStruct(s, &view); err != nil {
		return nil, err
	}

	return &view, nil
}

// EventToStruct encodes an alarm event as a Struct.
func EventToStruct(event *alarm.Event) (*structpb.Struct, error) {
	return toStruct(event)
}

// EventFromStruct decodes an alarm event produced by EventToStruct.
func EventFromStruct(s *structpb.Struct) (*alarm.Event, error) {
	var event alarm.Event
	if err := fromStruct(s, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}

	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert %T to struct: %w", v, err)
	}

	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("convert struct to %T: %w", v, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}

	return nil
}
