package reporting

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/netzet-lab/klaviyo-bridge/internal/core/errors"
	"github.com/netzet-lab/klaviyo-bridge/internal/klaviyo"
)

// ListMetricsHandler handles GET /v1/metrics
func (s *Service) ListMetricsHandler(c *gin.Context) {
	metrics, err := s.provider.ListMetrics(c.Request.Context())
	if err != nil {
		s.writeProviderError(c, "Failed to list metrics", err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// CountByDateHandler handles GET /v1/metrics/count?date=YYYY-MM-DD
// Missing query parameters are rejected before any provider call is made.
func (s *Service) CountByDateHandler(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		writeValidationError(c, "`date` query parameter is required")
		return
	}

	counts, err := s.provider.CountEventsByDate(c.Request.Context(), date)
	if err != nil {
		s.writeProviderError(c, "Failed to count events by date", err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// EmailsByMetricHandler handles GET /v1/metrics/emails?metric=<name>&date=YYYY-MM-DD
func (s *Service) EmailsByMetricHandler(c *gin.Context) {
	metricName := c.Query("metric")
	date := c.Query("date")
	if metricName == "" {
		writeValidationError(c, "`metric` query parameter is required")
		return
	}
	if date == "" {
		writeValidationError(c, "`date` query parameter is required")
		return
	}

	emails, err := s.provider.EmailsByMetric(c.Request.Context(), metricName, date)
	if err != nil {
		if errors.Is(err, klaviyo.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   err.Error(),
			})
			return
		}
		s.writeProviderError(c, "Failed to resolve emails for metric", err)
		return
	}
	c.JSON(http.StatusOK, emails)
}

// ProfileAttributesHandler handles GET /v1/profiles/:email
// An unknown email yields a JSON null body, not an error.
func (s *Service) ProfileAttributesHandler(c *gin.Context) {
	attrs, err := s.provider.ProfileAttributesByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.writeProviderError(c, "Failed to look up profile", err)
		return
	}
	c.JSON(http.StatusOK, attrs)
}

// ProfileMetricsHandler handles GET /v1/profiles/:email/metrics
// An unknown email yields an empty list, not an error.
func (s *Service) ProfileMetricsHandler(c *gin.Context) {
	metrics, err := s.provider.MetricsForProfile(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.writeProviderError(c, "Failed to resolve metrics for profile", err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// writeProviderError maps upstream failures to 5xx-class outcomes. Genuine
// provider errors surface as 502; anything else is a 500.
func (s *Service) writeProviderError(c *gin.Context, message string, err error) {
	s.logger.Error(message, "error", err)

	var provErr *klaviyo.ProviderError
	if errors.As(err, &provErr) {
		c.JSON(http.StatusBadGateway, httperr.ErrorResponse{
			ErrorType: httperr.HttpProviderError,
			Message:   message,
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   message,
		Details:   err.Error(),
	})
}

func writeValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpValidationError,
		Message:   message,
	})
}
