package klaviyo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ProfileByEmail issues a filtered profile query and returns the first
// matching resource, or nil when the result set is empty. Absence is a valid
// outcome, not a failure.
func (c *Client) ProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	query := url.Values{}
	query.Set("filter", fmt.Sprintf("equals(email,%q)", email))

	body, err := c.do(ctx, http.MethodGet, "/profiles/", query, nil, false)
	if err != nil {
		return nil, err
	}

	var doc listDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profiles response: %w", err)
	}
	if len(doc.Data) == 0 {
		return nil, nil
	}

	res := doc.Data[0]
	return &Profile{
		ID:         res.ID,
		Email:      stringAttr(res.Attributes, "email"),
		Attributes: res.Attributes,
	}, nil
}

// ProfileAttributesByEmail returns the attribute map of the profile with the
// given email, or nil when no such profile exists.
func (c *Client) ProfileAttributesByEmail(ctx context.Context, email string) (map[string]interface{}, error) {
	profile, err := c.ProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	return profile.Attributes, nil
}

// ListMetrics fetches the full metric catalog. The catalog endpoint is
// assumed to return the complete set in one call; if the provider starts
// paginating it, this needs the same next-link loop the event traversal uses.
// Concurrent callers share a single in-flight request; nothing is cached, so
// each sequential call still observes the provider's current catalog.
func (c *Client) ListMetrics(ctx context.Context) ([]Metric, error) {
	result, err, _ := c.catalogGroup.Do("metrics", func() (interface{}, error) {
		return c.fetchMetrics(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Metric), nil
}

func (c *Client) fetchMetrics(ctx context.Context) ([]Metric, error) {
	body, err := c.do(ctx, http.MethodGet, "/metrics/", nil, nil, false)
	if err != nil {
		return nil, err
	}

	var doc listDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metrics response: %w", err)
	}

	metrics := make([]Metric, 0, len(doc.Data))
	for _, res := range doc.Data {
		metrics = append(metrics, Metric{
			ID:   res.ID,
			Name: stringAttr(res.Attributes, "name"),
		})
	}
	return metrics, nil
}

// MetricByName resolves a metric by case-insensitive exact name match against
// the catalog. Returns ErrNotFound when no metric matches.
func (c *Client) MetricByName(ctx context.Context, name string) (Metric, error) {
	metrics, err := c.ListMetrics(ctx)
	if err != nil {
		return Metric{}, err
	}
	for _, m := range metrics {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Metric{}, fmt.Errorf("metric %q: %w", name, ErrNotFound)
}
