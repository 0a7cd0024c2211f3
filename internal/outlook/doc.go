// Package outlook implements the Microsoft side of rule cleanups against the
// Microsoft Graph REST API. Graph has no batch move endpoint, so matching
// messages are moved one request at a time, and rule matching happens
// client-side over the listed inbox messages.
package outlook
