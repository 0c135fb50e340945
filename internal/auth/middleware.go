package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ribbon-app/ribbon/internal/api"
	"github.com/ribbon-app/ribbon/internal/middleware"
)

// Middleware returns an HTTP middleware that validates the Bearer token and
// places the user claims on the request context.
func (m *JWTManager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := m.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := middleware.WithAuthClaims(r.Context(), middleware.AuthClaims{
				UserID: userID,
				Email:  claims.Email,
				Tier:   claims.Tier,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
