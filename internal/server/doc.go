// Package server exposes the HTTP surface: bearer-authenticated rule cleanup
// and sync job endpoints, plus health and Prometheus metrics.
package server
