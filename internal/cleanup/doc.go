// Package cleanup orchestrates the removal of an organization rule's traces
// across every email provider a user has connected: unlabeling matched
// messages and deleting the server-side filter or inbox rule. Provider
// failures degrade the per-provider result instead of aborting the fan-out.
package cleanup
