package ingestion

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	v1 "github.com/netzet-lab/klaviyo-bridge/internal/api/v1"
	"github.com/netzet-lab/klaviyo-bridge/internal/core/storage"
)

// Forwarder delivers persisted events to the provider on a best-effort basis.
// Implementations must swallow provider failures; persistence success is
// independent of provider delivery success.
type Forwarder interface {
	SendEvent(ctx context.Context, event *v1.Event)
	SendBulk(ctx context.Context, events []v1.Event)
}

type Service struct {
	store            storage.EventStore
	forwarder        Forwarder
	maxBodySizeBytes int
	logger           *slog.Logger
}

func NewService(store storage.EventStore, forwarder Forwarder, maxBodySizeMB int, logger *slog.Logger) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if forwarder == nil {
		panic("ingestion: forwarder must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:            store,
		forwarder:        forwarder,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		logger:           logger,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.CreateEventHandler)
	r.POST("/v1/events/bulk", s.CreateBulkEventsHandler)
}
