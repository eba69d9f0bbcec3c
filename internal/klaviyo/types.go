package klaviyo

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups of a named resource that does not exist on the
// provider side (e.g. an unknown metric name). Absence of a profile during an
// email lookup is NOT an error and returns nil instead.
var ErrNotFound = errors.New("not found")

// ProviderError reports a failed provider call: either a transport error or a
// non-2xx response.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider request failed: %v", e.Err)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Metric is a catalog entry in the provider's metric catalog.
type Metric struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile is a provider profile resource. Identity is the provider-assigned
// id; the lookup key is email.
type Profile struct {
	ID         string                 `json:"id"`
	Email      string                 `json:"email"`
	Attributes map[string]interface{} `json:"attributes"`
}

// MetricCount is the per-metric entry of a daily count report.
type MetricCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// DateCounts is the daily count report: one entry per catalog metric, in
// catalog order, no metric omitted.
type DateCounts struct {
	Date    string        `json:"date"`
	Results []MetricCount `json:"results"`
}

// MetricEmails is the set of unique emails that triggered a metric on a date.
type MetricEmails struct {
	Metric string   `json:"metric"`
	Date   string   `json:"date"`
	Emails []string `json:"emails"`
}

// JSON:API document shapes, internal to the client.

type resourceIdentifier struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type relationship struct {
	Data *resourceIdentifier `json:"data"`
}

type resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    map[string]interface{}  `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type listDocument struct {
	Data     []resource `json:"data"`
	Included []resource `json:"included"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

type aggregateValue struct {
	Count float64 `json:"count"`
}

type aggregateDocument struct {
	Data struct {
		Attributes struct {
			Values []aggregateValue `json:"values"`
		} `json:"attributes"`
	} `json:"data"`
}

func stringAttr(attrs map[string]interface{}, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}
