// Package gmail implements the Gmail side of rule cleanups on top of the
// Google API client: label lookup, one-shot search + batch unlabel, and
// settings-filter deletion.
package gmail
