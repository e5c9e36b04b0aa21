package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openmunicipal/portal/internal/notify"
)

// DB is the narrow database surface the core services need.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ContentCache is the persistent tier holding rendered public content.
// Reads populate it, content changes invalidate individual keys.
type ContentCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
}

// LocalCache is the in-process tier for short-lived computed reads
// (dashboard aggregates, directory listings). Writes cannot fail; staleness
// is bounded by the tier's TTL plus explicit invalidation on mutations.
type LocalCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

type Services struct {
	ServiceRequest *ServiceRequestService
	News           *NewsService
	Event          *EventService
	Directory      *DirectoryService
	Dashboard      *DashboardService
	APIKey         *APIKeyService
}

func NewServices(db DB, sender notify.Sender, content ContentCache, local LocalCache) *Services {
	return &Services{
		ServiceRequest: NewServiceRequestService(db, sender),
		News:           NewNewsService(db, content),
		Event:          NewEventService(db),
		Directory:      NewDirectoryService(db, local),
		Dashboard:      NewDashboardService(db, local),
		APIKey:         NewAPIKeyService(db),
	}
}
