// Package reporting exposes the read-side analytics endpoints. All queries
// are computed live against the provider; nothing is read from the local
// event store.
package reporting

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/netzet-lab/klaviyo-bridge/internal/klaviyo"
)

// Provider is the slice of the aggregation client the reporting layer needs.
type Provider interface {
	ListMetrics(ctx context.Context) ([]klaviyo.Metric, error)
	CountEventsByDate(ctx context.Context, date string) (*klaviyo.DateCounts, error)
	EmailsByMetric(ctx context.Context, metricName, date string) (*klaviyo.MetricEmails, error)
	ProfileAttributesByEmail(ctx context.Context, email string) (map[string]interface{}, error)
	MetricsForProfile(ctx context.Context, email string) ([]klaviyo.Metric, error)
}

type Service struct {
	provider Provider
	logger   *slog.Logger
}

func NewService(provider Provider, logger *slog.Logger) *Service {
	if provider == nil {
		panic("reporting: provider must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		logger:   logger,
	}
}

// RegisterRoutes registers the reporting API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/metrics", s.ListMetricsHandler)
	r.GET("/v1/metrics/count", s.CountByDateHandler)
	r.GET("/v1/metrics/emails", s.EmailsByMetricHandler)
	r.GET("/v1/profiles/:email", s.ProfileAttributesHandler)
	r.GET("/v1/profiles/:email/metrics", s.ProfileMetricsHandler)
}
