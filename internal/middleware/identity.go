package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/audit"
	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

type contextKey string

const (
	UserContextKey    contextKey = "user"
	SessionContextKey contextKey = "voiceSession"
)

func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserContextKey).(*model.User); ok {
		return user
	}
	return nil
}

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// IdentityClaims is the subset of the identity provider's token we rely on.
type IdentityClaims struct {
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	VoiceControl  bool     `json:"voiceControl"`
	AssignedRooms []string `json:"assignedRooms"`
	jwt.RegisteredClaims
}

var errMissingSubject = errors.New("token has no subject")

// IdentityMiddleware verifies the HS256 bearer token issued by the primary
// identity system and places the user on the request context.
type IdentityMiddleware struct {
	secret []byte
}

func NewIdentityMiddleware(secret string) *IdentityMiddleware {
	return &IdentityMiddleware{secret: []byte(secret)}
}

// Verify parses and validates an identity token.
func (m *IdentityMiddleware) Verify(tokenString string) (*model.User, error) {
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errMissingSubject
	}

	return &model.User{
		ID:            claims.Subject,
		Name:          claims.Name,
		Role:          claims.Role,
		VoiceControl:  claims.VoiceControl,
		AssignedRooms: claims.AssignedRooms,
	}, nil
}

func (m *IdentityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		user, err := m.Verify(token)
		if err != nil {
			log.Warn().Err(err).Msg("identity middleware: invalid token")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": err.Error()},
			})
			httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
