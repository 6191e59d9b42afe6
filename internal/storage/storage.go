// Package storage provides durable blob storage for property media and the
// key/URL indirection around it. Media is addressed by a stable key of the
// form {category}/{userID}/{unixMillis}-{filename}; only keys are ever
// persisted, and every read path resolves a key into a fresh time-limited
// URL through a Resolver.
package storage

import (
	"context"
	"io"
)

// Media key categories. These are the first path segment of every stable key
// and are part of the stored data format.
const (
	CategoryPropertyImage = "property-images"
	CategoryVirtualTour   = "virtual-tour-videos"
)

// Storage writes and removes blobs addressed by stable keys.
type Storage interface {
	// Save stores body under key, overwriting any existing object.
	Save(ctx context.Context, key string, body io.Reader) error

	// Delete removes the object at key. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, key string) error
}

// Resolver maps a stable key to a temporary, credentialed retrieval URL.
// The URL is a pure function of (key, now) and is never persisted.
type Resolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}
