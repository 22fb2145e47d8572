package health

import "context"

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an embedding or chat provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// Corpus reports the size of the loaded reference index.
type Corpus interface {
	Len() int
}
