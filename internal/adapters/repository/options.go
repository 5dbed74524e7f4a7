package repository

// DefaultMaxResults bounds the attempt index when no option is given.
const DefaultMaxResults = 10_000

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxResults caps the attempt index; the oldest inserted attempt is evicted
// first. Non-positive values keep the default.
func WithMaxResults(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxResults = n
		}
	}
}
