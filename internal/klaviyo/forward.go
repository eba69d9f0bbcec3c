package klaviyo

import (
	"context"
	"net/http"

	v1 "github.com/netzet-lab/klaviyo-bridge/internal/api/v1"
)

// SendEvent forwards one event to the provider. Forwarding is best-effort:
// the caller has already persisted the event locally, so provider failures
// are logged and swallowed, never propagated back.
func (c *Client) SendEvent(ctx context.Context, event *v1.Event) {
	if err := c.createEvent(ctx, event); err != nil {
		c.logger.Error("Failed to send event to Klaviyo",
			"name", event.Name,
			"error", err)
	}
}

// SendBulk forwards events sequentially, in order, awaiting each before
// starting the next. A failure on one event does not stop subsequent
// forwards.
func (c *Client) SendBulk(ctx context.Context, events []v1.Event) {
	for i := range events {
		c.SendEvent(ctx, &events[i])
	}
}

func (c *Client) createEvent(ctx context.Context, event *v1.Event) error {
	properties := event.Attributes
	if properties == nil {
		properties = map[string]interface{}{}
	}
	profile := event.ProfileAttributes
	if profile == nil {
		profile = map[string]interface{}{}
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "event",
			"attributes": map[string]interface{}{
				"metric":     map[string]string{"name": event.Name},
				"properties": properties,
				"profile":    profile,
				"time":       c.nowFn().Unix(),
			},
		},
	}

	_, err := c.do(ctx, http.MethodPost, "/events/", nil, payload, false)
	return err
}
