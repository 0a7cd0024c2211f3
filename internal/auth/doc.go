// Package auth resolves bearer tokens into the user and organization
// identity the rest of the service operates on.
package auth
