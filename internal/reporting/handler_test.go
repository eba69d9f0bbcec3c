package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	httperr "github.com/netzet-lab/klaviyo-bridge/internal/core/errors"
	"github.com/netzet-lab/klaviyo-bridge/internal/klaviyo"
)

// fakeProvider returns canned responses; individual calls can be failed.
type fakeProvider struct {
	metrics     []klaviyo.Metric
	metricsErr  error
	counts      *klaviyo.DateCounts
	countsErr   error
	emails      *klaviyo.MetricEmails
	emailsErr   error
	attrs       map[string]interface{}
	attrsErr    error
	profMetrics []klaviyo.Metric
	provCalls   int
}

func (f *fakeProvider) ListMetrics(ctx context.Context) ([]klaviyo.Metric, error) {
	f.provCalls++
	return f.metrics, f.metricsErr
}

func (f *fakeProvider) CountEventsByDate(ctx context.Context, date string) (*klaviyo.DateCounts, error) {
	f.provCalls++
	return f.counts, f.countsErr
}

func (f *fakeProvider) EmailsByMetric(ctx context.Context, metricName, date string) (*klaviyo.MetricEmails, error) {
	f.provCalls++
	return f.emails, f.emailsErr
}

func (f *fakeProvider) ProfileAttributesByEmail(ctx context.Context, email string) (map[string]interface{}, error) {
	f.provCalls++
	return f.attrs, f.attrsErr
}

func (f *fakeProvider) MetricsForProfile(ctx context.Context, email string) ([]klaviyo.Metric, error) {
	f.provCalls++
	return f.profMetrics, nil
}

func newTestRouter(provider *fakeProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(provider, nil)
	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestListMetricsHandler(t *testing.T) {
	provider := &fakeProvider{metrics: []klaviyo.Metric{{ID: "m1", Name: "purchased"}}}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/metrics")
	require.Equal(t, http.StatusOK, resp.Code)

	var metrics []klaviyo.Metric
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &metrics))
	require.Equal(t, provider.metrics, metrics)
}

func TestCountByDateHandler_MissingDateRejectedBeforeProviderCall(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/metrics/count")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Zero(t, provider.provCalls, "validation must happen before any provider call")

	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpValidationError, errResp.ErrorType)
}

func TestCountByDateHandler_Success(t *testing.T) {
	provider := &fakeProvider{counts: &klaviyo.DateCounts{
		Date:    "2025-07-15",
		Results: []klaviyo.MetricCount{{ID: "m1", Name: "purchased", Count: 5}},
	}}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/metrics/count?date=2025-07-15")
	require.Equal(t, http.StatusOK, resp.Code)

	var counts klaviyo.DateCounts
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &counts))
	require.Equal(t, *provider.counts, counts)
}

func TestEmailsByMetricHandler_MissingParams(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/metrics/emails?date=2025-07-15")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doGet(r, "/v1/metrics/emails?metric=purchased")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	require.Zero(t, provider.provCalls)
}

func TestEmailsByMetricHandler_UnknownMetricIs404(t *testing.T) {
	provider := &fakeProvider{
		emailsErr: fmt.Errorf("metric %q: %w", "no_such_metric", klaviyo.ErrNotFound),
	}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/metrics/emails?metric=no_such_metric&date=2025-07-15")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpNotFoundError, errResp.ErrorType)
}

func TestEmailsByMetricHandler_ProviderFailureIs502(t *testing.T) {
	provider := &fakeProvider{
		emailsErr: &klaviyo.ProviderError{StatusCode: http.StatusInternalServerError, Body: "boom"},
	}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/metrics/emails?metric=purchased&date=2025-07-15")
	require.Equal(t, http.StatusBadGateway, resp.Code)

	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpProviderError, errResp.ErrorType)
}

func TestProfileAttributesHandler_UnknownEmailIsNull(t *testing.T) {
	provider := &fakeProvider{attrs: nil}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/profiles/nobody@example.com")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "null", resp.Body.String())
}

func TestProfileMetricsHandler_UnknownEmailIsEmptyList(t *testing.T) {
	provider := &fakeProvider{profMetrics: []klaviyo.Metric{}}
	r := newTestRouter(provider)

	resp := doGet(r, "/v1/profiles/nobody@example.com/metrics")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, "[]", resp.Body.String())
}
