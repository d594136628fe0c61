package processor

import (
	"context"
	"fmt"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/codec"
)

// Encode replaces the payload with its encoding under c.
func Encode(c codec.Codec) conveyor.Processor {
	return New("encode-"+c.Name(), func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		data, err := c.Encode(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", r.Header.Number, err)
		}
		return r.WithPayload(data), nil
	})
}

// Decode replaces a []byte or string payload with a T decoded under c.
func Decode[T any](c codec.Codec) conveyor.Processor {
	return New("decode-"+c.Name(), func(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
		var data []byte
		switch p := r.Payload.(type) {
		case []byte:
			data = p
		case string:
			data = []byte(p)
		default:
			return nil, fmt.Errorf("%w: decode wants []byte or string, got %T", conveyor.ErrPayloadType, r.Payload)
		}
		var v T
		if err := c.Decode(data, &v); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", r.Header.Number, err)
		}
		return r.WithPayload(v), nil
	})
}
