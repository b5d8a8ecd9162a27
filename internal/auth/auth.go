// Package auth verifies bearer tokens issued by the account service and
// carries the caller's identity through the request context.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tecnolua/ClubePharma/internal/logger"
)

const RoleAdmin = "ADMIN"

var (
	ErrTokenExpired = errors.New("Token has expired")
	ErrTokenInvalid = errors.New("Invalid token")
	ErrUnknownUser  = errors.New("User not found. Token may be invalid.")
)

type Identity struct {
	UserID string
	Role   string
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Verifier turns a raw token into the user id it was issued for.
type Verifier interface {
	Verify(token string) (userID string, err error)
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type HS256 struct{ secret []byte }

func NewHS256(secret string) *HS256 { return &HS256{secret: []byte(secret)} }

func (v *HS256) Verify(token string) (string, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case err != nil:
		return "", ErrTokenInvalid
	case c.UserID == "":
		return "", ErrTokenInvalid
	}
	return c.UserID, nil
}

// Sign issues a token for userID. Used by tests and local tooling.
func (v *HS256) Sign(userID string, claims jwt.RegisteredClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: userID, RegisteredClaims: claims}).SignedString(v.secret)
}

// Directory resolves the current role of a user. Tokens carry no role.
type Directory interface {
	Role(ctx context.Context, userID string) (string, error)
}

type PgDirectory struct{ DB *pgxpool.Pool }

func (d *PgDirectory) Role(ctx context.Context, userID string) (string, error) {
	var role string
	err := d.DB.QueryRow(ctx, `SELECT role FROM users WHERE id=$1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownUser
	}
	return role, err
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}

// Authenticate requires a valid bearer token for a known user.
func Authenticate(v Verifier, dir Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				deny(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok {
				deny(w, http.StatusUnauthorized, "Invalid token format. Use: Bearer <token>")
				return
			}
			if token = strings.TrimSpace(token); token == "" {
				deny(w, http.StatusUnauthorized, "Access denied. Token is missing.")
				return
			}
			userID, err := v.Verify(token)
			if err != nil {
				deny(w, http.StatusUnauthorized, err.Error())
				return
			}
			role, err := dir.Role(r.Context(), userID)
			if errors.Is(err, ErrUnknownUser) {
				deny(w, http.StatusUnauthorized, err.Error())
				return
			}
			if err != nil {
				logger.Ctx(r.Context()).Error().Err(err).Str("user_id", userID).Msg("role lookup failed")
				deny(w, http.StatusInternalServerError, "Authentication error occurred.")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: userID, Role: role})
			l := logger.Ctx(ctx).With().Str("user_id", userID).Logger()
			next.ServeHTTP(w, r.WithContext(logger.With(ctx, l)))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !id.IsAdmin() {
			deny(w, http.StatusForbidden, "Access denied. Admin privileges required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
