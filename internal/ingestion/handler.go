package ingestion

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/netzet-lab/klaviyo-bridge/internal/api/v1"
	httperr "github.com/netzet-lab/klaviyo-bridge/internal/core/errors"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to persist event"
)

// ingestionError carries the structured HTTP error shape from a helper back
// to the handler. Helpers return this instead of writing to gin.Context
// directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// CreateEventHandler handles HTTP POST requests for single-event ingestion.
// The event is persisted first; forwarding to the provider is best-effort and
// never affects the response.
func (s *Service) CreateEventHandler(c *gin.Context) {
	var evt v1.Event
	payloadSize, ierr := s.parseBody(c, &evt)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	if err := evt.Validate(); err != nil {
		s.logger.Warn("Event validation failed", "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		})
		return
	}

	s.logger.Info("Received event",
		"name", evt.Name,
		"payload_size", payloadSize)

	if ierr := s.persistEvent(c.Request.Context(), &evt); ierr != nil {
		writeError(c, ierr)
		return
	}

	s.forwarder.SendEvent(c.Request.Context(), &evt)

	c.JSON(http.StatusCreated, evt)
}

// CreateBulkEventsHandler handles HTTP POST requests for bulk ingestion.
// The whole batch is validated before anything is persisted; forwarding runs
// sequentially after all events are stored.
func (s *Service) CreateBulkEventsHandler(c *gin.Context) {
	var req v1.BulkEventsRequest
	payloadSize, ierr := s.parseBody(c, &req)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	if err := req.Validate(); err != nil {
		s.logger.Warn("Bulk validation failed", "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		})
		return
	}

	s.logger.Info("Received bulk events",
		"count", len(req.Events),
		"payload_size", payloadSize)

	for i := range req.Events {
		if ierr := s.persistEvent(c.Request.Context(), &req.Events[i]); ierr != nil {
			writeError(c, ierr)
			return
		}
	}

	s.forwarder.SendBulk(c.Request.Context(), req.Events)

	c.JSON(http.StatusOK, gin.H{"status": "ok", "count": len(req.Events)})
}

// parseBody reads the size-limited request body and binds it into target.
// Returns the raw payload size (used for structured logging upstream).
func (s *Service) parseBody(c *gin.Context, target interface{}) (int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		s.logger.Error("Failed to read request body", "error", err)
		return 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		s.logger.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	if err := c.ShouldBindJSON(target); err != nil {
		s.logger.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	return len(bodyBytes), nil
}

// persistEvent saves the event to the backing store.
func (s *Service) persistEvent(ctx context.Context, evt *v1.Event) *ingestionError {
	if err := s.store.SaveEvent(ctx, evt); err != nil {
		s.logger.Error("Failed to persist event", "error", err, "name", evt.Name)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}
	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
