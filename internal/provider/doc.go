// Package provider defines the adapter contract shared by the supported email
// providers, along with the rule predicate and naming rules that both sides of
// a cleanup must agree on.
package provider
