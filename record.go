package conveyor

import (
	"fmt"
	"time"
)

// Header carries the provenance of a record. It is set once by the reader
// that produced the record and copied unchanged through the pipeline.
type Header struct {
	// Number is the 1-based position of the record in its source.
	Number int64 `json:"number"`

	// Source is a human-readable name of the record's origin.
	Source string `json:"source"`

	// CreatedAt is when the reader produced the record.
	CreatedAt time.Time `json:"created_at"`

	// Scanned is set on records re-written one at a time after their
	// batch failed to write.
	Scanned bool `json:"scanned,omitempty"`
}

// NewHeader returns a header stamped with the current time.
func NewHeader(number int64, source string) Header {
	return Header{Number: number, Source: source, CreatedAt: time.Now().UTC()}
}

// Record is one unit of data flowing through a job. Records are values:
// processors that transform a record return a new one and never modify
// their input.
type Record struct {
	Header  Header
	Payload any

	poison bool
}

// NewRecord creates a record with the given header and payload.
func NewRecord(h Header, payload any) *Record {
	return &Record{Header: h, Payload: payload}
}

// NewPoisonRecord creates an end-of-stream marker. Poison records skip
// the processing pipeline and are broadcast to every sink by dispatchers.
func NewPoisonRecord() *Record {
	return &Record{
		Header: Header{Source: "poison", CreatedAt: time.Now().UTC()},
		poison: true,
	}
}

// IsPoison reports whether r is an end-of-stream marker.
func (r *Record) IsPoison() bool { return r != nil && r.poison }

// WithPayload returns a copy of r carrying payload.
func (r *Record) WithPayload(payload any) *Record {
	c := *r
	c.Payload = payload
	return &c
}

// WithHeader returns a copy of r carrying h.
func (r *Record) WithHeader(h Header) *Record {
	c := *r
	c.Header = h
	return &c
}

// String returns a short description used in logs.
func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.poison {
		return "Record{poison}"
	}
	return fmt.Sprintf("Record{number=%d, source=%q, payload=%v}", r.Header.Number, r.Header.Source, r.Payload)
}

// PayloadAs returns the payload of r as a T.
func PayloadAs[T any](r *Record) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.Payload.(T)
	return v, ok
}

// MustPayloadAs returns the payload of r as a T or an error wrapping
// ErrPayloadType.
func MustPayloadAs[T any](r *Record) (T, error) {
	v, ok := PayloadAs[T](r)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: want %T, got %T", ErrPayloadType, zero, payloadOf(r))
	}
	return v, nil
}

func payloadOf(r *Record) any {
	if r == nil {
		return nil
	}
	return r.Payload
}
