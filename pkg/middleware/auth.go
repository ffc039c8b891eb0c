package middleware

import (
	"net/http"
	"strings"

	"local-services/internal/data/entity"
	"local-services/internal/data/repository"
	"local-services/pkg/token"
	"local-services/pkg/utils"

	"go.uber.org/zap"
)

// Authenticate resolves the bearer token to a live user and attaches the
// session to the request context. Only the Authorization header is read.
func Authenticate(tokens *token.Manager, userRepo repository.UserRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, raw, found := strings.Cut(authHeader, " ")
			raw = strings.TrimSpace(raw)
			if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			// 2. Verify signature and expiry
			userID, err := tokens.Parse(raw)
			if err != nil {
				logger.Warn("Rejected token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			// 3. The account must still exist
			user, err := userRepo.FindByID(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to load token user",
					zap.String("user_id", userID.String()),
					zap.Error(err))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if user == nil {
				logger.Warn("Token for deleted user", zap.String("user_id", userID.String()))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}
			if !user.Role.Valid() {
				logger.Error("Stored user has unknown role",
					zap.String("user_id", userID.String()),
					zap.String("role", string(user.Role)))
				utils.ResponseForbidden(w, "You do not have access to this resource")
				return
			}

			ctx := utils.SetSession(r.Context(), utils.Session{UserID: user.ID, Role: user.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the session role is one of roles.
// It must run after Authenticate.
func RequireRole(logger *zap.Logger, roles ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := utils.GetSession(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			for _, role := range roles {
				if session.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Role check failed",
				zap.String("user_id", session.UserID.String()),
				zap.String("role", string(session.Role)),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, "You do not have access to this resource")
		})
	}
}

// RequireCapability lets the request through only when the session role holds
// every capability in caps. It must run after Authenticate.
func RequireCapability(logger *zap.Logger, caps ...entity.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := utils.GetSession(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			for _, c := range caps {
				if !session.Role.Can(c) {
					logger.Warn("Capability check failed",
						zap.String("user_id", session.UserID.String()),
						zap.String("role", string(session.Role)),
						zap.String("capability", string(c)),
						zap.String("path", r.URL.Path))
					utils.ResponseForbidden(w, "You do not have access to this resource")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
