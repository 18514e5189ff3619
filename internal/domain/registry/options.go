package registry

// Option configures a Registry.
type Option func(*Registry)

// WithMinCaptures sets how many descriptors a registration needs.
func WithMinCaptures(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.minCaptures = n
		}
	}
}

// WithDescriptorLength fixes the descriptor length. Zero disables the check.
func WithDescriptorLength(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.descriptorLength = n
		}
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}
