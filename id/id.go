// Package id defines TypeID-based identifiers for Conveyor entities.
//
// A job definition, each run of that job, each executor and each
// dispatcher gets an ID whose prefix names the entity type. IDs are
// K-sortable (UUIDv7-based) and render as "prefix_suffix".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Conveyor entity types.
const (
	PrefixJob        Prefix = "job"
	PrefixRun        Prefix = "run"
	PrefixExecutor   Prefix = "exec"
	PrefixDispatcher Prefix = "dsp"
	PrefixDeadLetter Prefix = "dlq"
)

// ID wraps a TypeID. The zero value is Nil.
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates an ID with the given prefix. It panics when prefix is not
// a valid TypeID prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string such as "run_01h2xcejqtf2nbrexx3vqjhp41".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and checks that its prefix is expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

// ──────────────────────────────────────────────────
// Typed constructors and parsers
// ──────────────────────────────────────────────────

func NewJobID() ID        { return New(PrefixJob) }
func NewRunID() ID        { return New(PrefixRun) }
func NewExecutorID() ID   { return New(PrefixExecutor) }
func NewDispatcherID() ID { return New(PrefixDispatcher) }
func NewDeadLetterID() ID { return New(PrefixDeadLetter) }

func ParseJobID(s string) (ID, error)        { return ParseWithPrefix(s, PrefixJob) }
func ParseRunID(s string) (ID, error)        { return ParseWithPrefix(s, PrefixRun) }
func ParseExecutorID(s string) (ID, error)   { return ParseWithPrefix(s, PrefixExecutor) }
func ParseDispatcherID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDispatcher) }
func ParseDeadLetterID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDeadLetter) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of the ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
