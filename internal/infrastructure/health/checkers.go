package health

import (
	"context"

	"github.com/cardcaptor/almanac-service/internal/core/ports"
	infraDB "github.com/cardcaptor/almanac-service/internal/infrastructure/db"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// upstreamHealthChecker probes the almanac discovery endpoint through
// the resolver, so a healthy report also means an address is cached.
type upstreamHealthChecker struct{ resolver ports.EndpointResolver }

func (u *upstreamHealthChecker) Name() string { return "upstream" }
func (u *upstreamHealthChecker) Check(ctx context.Context) error {
	_, err := u.resolver.Ensure(ctx)
	return err
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewUpstreamHealthChecker creates a health checker for the almanac upstream.
func NewUpstreamHealthChecker(resolver ports.EndpointResolver) ports.HealthChecker {
	return &upstreamHealthChecker{resolver: resolver}
}
