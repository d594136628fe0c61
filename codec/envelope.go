package codec

import (
	"fmt"
	"time"

	"github.com/xraph/conveyor"
)

// Envelope is the wire form of a record. The payload is encoded with the
// same codec as the envelope and kept as bytes, so a consumer decides
// what type to decode it into.
type Envelope struct {
	Number    int64     `json:"n" msgpack:"n"`
	Source    string    `json:"src" msgpack:"src"`
	CreatedAt time.Time `json:"ts" msgpack:"ts"`
	Scanned   bool      `json:"scn,omitempty" msgpack:"scn,omitempty"`
	Poison    bool      `json:"poison,omitempty" msgpack:"poison,omitempty"`
	Payload   []byte    `json:"p,omitempty" msgpack:"p,omitempty"`
}

// EncodeRecord serializes r, including its header and poison flag.
func EncodeRecord(c Codec, r *conveyor.Record) ([]byte, error) {
	env := Envelope{
		Number:    r.Header.Number,
		Source:    r.Header.Source,
		CreatedAt: r.Header.CreatedAt,
		Scanned:   r.Header.Scanned,
		Poison:    r.IsPoison(),
	}
	if !env.Poison && r.Payload != nil {
		p, err := c.Encode(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("codec: encode payload of record %d: %w", r.Header.Number, err)
		}
		env.Payload = p
	}
	data, err := c.Encode(env)
	if err != nil {
		return nil, fmt.Errorf("codec: encode envelope: %w", err)
	}
	return data, nil
}

// DecodeRecord restores a record serialized by EncodeRecord. The payload
// of the returned record is the raw encoded []byte; decode it with
// DecodePayload or the processor.Decode stage.
func DecodeRecord(c Codec, data []byte) (*conveyor.Record, error) {
	var env Envelope
	if err := c.Decode(data, &env); err != nil {
		return nil, fmt.Errorf("codec: decode envelope: %w", err)
	}
	if env.Poison {
		return conveyor.NewPoisonRecord(), nil
	}
	h := conveyor.Header{
		Number:    env.Number,
		Source:    env.Source,
		CreatedAt: env.CreatedAt,
		Scanned:   env.Scanned,
	}
	return conveyor.NewRecord(h, env.Payload), nil
}

// DecodePayload decodes the raw payload of r into a T.
func DecodePayload[T any](c Codec, r *conveyor.Record) (T, error) {
	var v T
	data, ok := r.Payload.([]byte)
	if !ok {
		return v, fmt.Errorf("%w: want []byte, got %T", conveyor.ErrPayloadType, r.Payload)
	}
	if err := c.Decode(data, &v); err != nil {
		return v, fmt.Errorf("codec: decode payload of record %d: %w", r.Header.Number, err)
	}
	return v, nil
}
