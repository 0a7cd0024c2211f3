package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency
const (
	attrProvider  = "provider"
	attrOperation = "operation"
	attrStatus    = "status"
	attrRuleType  = "rule_type"
)

// Status values for metric labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a safe no-op recorder.
type Metrics struct {
	cleanupRequestsTotal    metric.Int64Counter
	providerOperationsTotal metric.Int64Counter
	tokenRefreshTotal       metric.Int64Counter
	emailsProcessedTotal    metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.cleanupRequestsTotal, err = meter.Int64Counter(
		"cleanup_requests_total",
		metric.WithDescription("Total number of rule cleanup requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cleanup_requests_total counter: %w", err)
	}

	m.providerOperationsTotal, err = meter.Int64Counter(
		"provider_api_operations_total",
		metric.WithDescription("Total number of email provider API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_api_operations_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.emailsProcessedTotal, err = meter.Int64Counter(
		"emails_processed_total",
		metric.WithDescription("Total number of emails unlabeled or moved by cleanups"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emails_processed_total counter: %w", err)
	}

	return m, nil
}

// RecordCleanupRequest records one cleanup request with its rule type and outcome.
func (m *Metrics) RecordCleanupRequest(ctx context.Context, ruleType, status string) {
	if m == nil || m.cleanupRequestsTotal == nil {
		return // Instrumentation not initialized
	}
	m.cleanupRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrRuleType, ruleType),
		attribute.String(attrStatus, status),
	))
}

// RecordProviderOperation records one provider API operation.
func (m *Metrics) RecordProviderOperation(ctx context.Context, provider, operation, status string) {
	if m == nil || m.providerOperationsTotal == nil {
		return
	}
	m.providerOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// RecordTokenRefresh records one token refresh attempt.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, provider, status string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	))
}

// RecordEmailsProcessed adds the number of emails a cleanup touched.
func (m *Metrics) RecordEmailsProcessed(ctx context.Context, provider string, count int) {
	if m == nil || m.emailsProcessedTotal == nil || count <= 0 {
		return
	}
	m.emailsProcessedTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String(attrProvider, provider),
	))
}
