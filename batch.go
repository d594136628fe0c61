package conveyor

import (
	"iter"
	"slices"
)

// Batch is an ordered group of records written together. A batch can be
// appended to until it is sealed.
type Batch struct {
	records []*Record
	sealed  bool
}

// NewBatch returns an empty batch with room for capacity records.
func NewBatch(capacity int) *Batch {
	if capacity < 0 {
		capacity = 0
	}
	return &Batch{records: make([]*Record, 0, capacity)}
}

// BatchOf returns a sealed batch holding records.
func BatchOf(records ...*Record) *Batch {
	return &Batch{records: slices.Clone(records), sealed: true}
}

// Add appends r to the batch.
func (b *Batch) Add(r *Record) error {
	if b.sealed {
		return ErrBatchSealed
	}
	b.records = append(b.records, r)
	return nil
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int { return len(b.records) }

// IsEmpty reports whether the batch holds no records.
func (b *Batch) IsEmpty() bool { return len(b.records) == 0 }

// Seal prevents further additions.
func (b *Batch) Seal() { b.sealed = true }

// Sealed reports whether the batch has been sealed.
func (b *Batch) Sealed() bool { return b.sealed }

// Records returns a copy of the records in order.
func (b *Batch) Records() []*Record { return slices.Clone(b.records) }

// All iterates the records in order.
func (b *Batch) All() iter.Seq2[int, *Record] {
	return func(yield func(int, *Record) bool) {
		for i, r := range b.records {
			if !yield(i, r) {
				return
			}
		}
	}
}
