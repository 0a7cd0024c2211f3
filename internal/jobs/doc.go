// Package jobs tracks background sync jobs through their minimal lifecycle
// and runs the per-provider sync pass over a user's connected accounts.
package jobs
