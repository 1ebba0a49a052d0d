package store

import "time"

// defaultTimeout bounds every repository round-trip.
const defaultTimeout = 3 * time.Second
