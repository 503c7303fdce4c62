package middleware

import (
	"context"
	"net/http"
	"strings"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/http/response"
)

type TokenValidator interface {
	ValidateToken(token string) (access.Subject, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		subject, err := m.tokens.ValidateToken(token)
		if err != nil {
			response.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}

// Optional attaches the subject when a token is present and valid; a present
// but invalid token is still an error.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		m.Authenticate(next).ServeHTTP(w, r)
	})
}

func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", common.NewError(common.CodeUnauthorized, "missing authorization header", nil)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", common.NewError(common.CodeUnauthorized, "invalid authorization header", nil)
	}
	return strings.TrimSpace(parts[1]), nil
}

func RequireRole(roles ...account.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := SubjectFromContext(r.Context())
			if !ok {
				response.Error(w, common.NewError(common.CodeUnauthorized, "authentication required", nil))
				return
			}
			for _, role := range roles {
				if subject.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, common.NewError(common.CodeForbidden, "insufficient role", nil))
		})
	}
}

func WithSubject(ctx context.Context, subject access.Subject) context.Context {
	return context.WithValue(ctx, ContextSubjectKey, subject)
}

func SubjectFromContext(ctx context.Context) (access.Subject, bool) {
	subject, ok := ctx.Value(ContextSubjectKey).(access.Subject)
	return subject, ok
}

func UserIDFromContext(ctx context.Context) (common.UUID, bool) {
	subject, ok := SubjectFromContext(ctx)
	return subject.AccountID, ok
}
