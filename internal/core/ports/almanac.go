package ports

import (
	"context"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
)

// EndpointResolver discovers the current best upstream address. The
// resolved address is owned per instance; a fresh resolver starts
// empty and must re-resolve.
type EndpointResolver interface {
	// Resolve queries the discovery endpoint and memoizes the result,
	// replacing any previously cached address.
	Resolve(ctx context.Context) (string, error)
	// Ensure returns the cached address, resolving only if none is
	// cached yet.
	Ensure(ctx context.Context) (string, error)
}

// AlmanacClient is a stateless wrapper around the two remote fetch
// operations. No caching, no retry, no rate limiting.
type AlmanacClient interface {
	FetchDay(ctx context.Context, date almanac.Date) (almanac.DayRecord, error)
	FetchHour(ctx context.Context, date almanac.Date) (almanac.HourRecord, error)
}

// AlmanacRepository is the persistent date-keyed cache with two
// independent record families. Get returns almanac.ErrNotFound for
// absence and *almanac.DecodeError for a corrupt row; Put upserts,
// preserving the first-write timestamp.
type AlmanacRepository interface {
	GetDay(ctx context.Context, date string) (almanac.DayRecord, error)
	PutDay(ctx context.Context, date string, record almanac.DayRecord) error
	GetHour(ctx context.Context, date string) (almanac.HourRecord, error)
	PutHour(ctx context.Context, date string, record almanac.HourRecord) error
}

// AlmanacService implements the cache-aside read path with a
// force-refresh override.
type AlmanacService interface {
	GetAlmanacInfo(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error)
}
