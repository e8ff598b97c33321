package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/table-reservation-service/internal/model"
)

// ErrUnauthorized is returned by a Resolver when the request carries no
// usable identity.
var ErrUnauthorized = errors.New("unauthorized")

// Resolver turns an inbound request into the caller identity.  It is the
// only place authentication happens; handlers and the reservation service
// receive the resolved model.Caller.
type Resolver interface {
	Resolve(r *http.Request) (model.Caller, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(r *http.Request) (model.Caller, error)

func (f ResolverFunc) Resolve(r *http.Request) (model.Caller, error) { return f(r) }

// JWTResolver validates HS256 bearer tokens signed with a shared secret.
// The caller id is read from the sub claim, falling back to user_id.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver returns a resolver for tokens signed with secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (j *JWTResolver) Resolve(r *http.Request) (model.Caller, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Caller{}, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !tok.Valid {
		return model.Caller{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Caller{}, fmt.Errorf("%w: invalid claims", ErrUnauthorized)
	}

	id, ok := claimID(claims["sub"])
	if !ok {
		id, ok = claimID(claims["user_id"])
	}
	if !ok || id == 0 {
		return model.Caller{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return model.Caller{UserID: id}, nil
}

// claimID accepts numeric claims (decoded as float64) and decimal strings.
func claimID(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}
