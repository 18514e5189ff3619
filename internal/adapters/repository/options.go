package repository

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithKeyPrefix namespaces both blobs, for sharing one bucket or table
// between kiosks.
func WithKeyPrefix(prefix string) Option {
	return func(s *SnapshotStore) {
		if prefix != "" {
			s.identitiesKey = prefix + "/" + IdentitiesKey
			s.eventsKey = prefix + "/" + EventsKey
		}
	}
}
