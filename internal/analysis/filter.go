package analysis

// Filter decides whether a reference is passed on to the consumer.
type Filter interface {
	Keep(ref TextRef) bool
}

// KindFilter keeps references of the listed kinds. An empty filter keeps
// everything.
type KindFilter []TextKind

func (f KindFilter) Keep(ref TextRef) bool {
	if len(f) == 0 {
		return true
	}
	for _, k := range f {
		if ref.Kind == k {
			return true
		}
	}
	return false
}

// FilterChain keeps a reference only if every filter keeps it.
type FilterChain struct {
	filters []Filter
}

// NewFilterChain creates a new filter chain
func NewFilterChain(filters ...Filter) *FilterChain {
	return &FilterChain{
		filters: filters,
	}
}

func (fc *FilterChain) Keep(ref TextRef) bool {
	for _, f := range fc.filters {
		if !f.Keep(ref) {
			return false
		}
	}
	return true
}

// Apply wraps fn so it only sees references the chain keeps.
func (fc *FilterChain) Apply(fn func(TextRef)) func(TextRef) {
	return func(ref TextRef) {
		if fc.Keep(ref) {
			fn(ref)
		}
	}
}
