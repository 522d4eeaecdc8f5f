package middleware

import (
	"net/http"
	"strings"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/responses"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	pkgAuth "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/auth"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the caller
// it describes.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			caller := callerFromClaims(claims)
			ctx := WithCaller(r.Context(), caller)

			if logg != nil {
				fields := map[string]any{
					"actor_role": string(caller.Role),
				}
				if caller.UserID != nil {
					fields["user_id"] = caller.UserID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func callerFromClaims(claims *pkgAuth.AccessTokenClaims) orders.Caller {
	switch claims.Role {
	case enums.CallerRoleAdmin:
		return orders.AdminCaller(*claims.UserID)
	case enums.CallerRoleCustomer:
		return orders.CustomerCaller(*claims.UserID, claims.Email)
	default:
		return orders.GuestCaller(claims.Email)
	}
}
