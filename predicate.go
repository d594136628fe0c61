package conveyor

// Predicate classifies records, for example to route them in a
// content-based dispatcher or to filter them in a pipeline.
type Predicate interface {
	Matches(r *Record) bool
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(r *Record) bool

// Matches calls f(r).
func (f PredicateFunc) Matches(r *Record) bool { return f(r) }

// And matches when every predicate matches. An empty And matches all.
func And(ps ...Predicate) Predicate {
	return PredicateFunc(func(r *Record) bool {
		for _, p := range ps {
			if !p.Matches(r) {
				return false
			}
		}
		return true
	})
}

// Or matches when any predicate matches. An empty Or matches nothing.
func Or(ps ...Predicate) Predicate {
	return PredicateFunc(func(r *Record) bool {
		for _, p := range ps {
			if p.Matches(r) {
				return true
			}
		}
		return false
	})
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return PredicateFunc(func(r *Record) bool { return !p.Matches(r) })
}

// Any matches every record.
func Any() Predicate {
	return PredicateFunc(func(*Record) bool { return true })
}

// PayloadMatches matches records whose payload is a T accepted by fn.
func PayloadMatches[T any](fn func(T) bool) Predicate {
	return PredicateFunc(func(r *Record) bool {
		v, ok := PayloadAs[T](r)
		return ok && fn(v)
	})
}
