package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every way a bearer token can fail verification:
// bad signature, expiry, or missing identity claims.
var ErrInvalidToken = errors.New("invalid bearer token")

// Identity is the authenticated caller.
type Identity struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
}

// Resolver turns a bearer token into an Identity.
type Resolver interface {
	Resolve(token string) (Identity, error)
}

// JWTResolver verifies HS256-signed JWTs carrying the user id in `sub` and
// the organization id in `org_id`.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver creates a resolver with the given signing secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// Resolve verifies the token and extracts the caller's identity.
func (r *JWTResolver) Resolve(tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := claimUUID(claims, "sub")
	if err != nil {
		return Identity{}, err
	}
	organizationID, err := claimUUID(claims, "org_id")
	if err != nil {
		return Identity{}, err
	}

	return Identity{UserID: userID, OrganizationID: organizationID}, nil
}

func claimUUID(claims jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, ok := claims[key].(string)
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a uuid", ErrInvalidToken, key)
	}
	return id, nil
}
