// Package notify publishes job lifecycle events for downstream consumers.
package notify
