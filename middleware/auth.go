package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"project-planner/logging"
	"project-planner/models"
	"project-planner/repositories"
	"project-planner/services"
	"project-planner/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userKey struct{}

// TokenValidator is satisfied by services.JWTService.
type TokenValidator interface {
	ValidateToken(token string) (primitive.ObjectID, error)
}

// UserFinder resolves the token subject.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Authenticator gates routes on a Bearer token and attaches the user.
type Authenticator struct {
	tokens TokenValidator
	users  UserFinder
}

func NewAuthenticator(tokens TokenValidator, users UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logging.Logger.Warnf("Event ID: AUTH_MISSING_HEADER, Description: Authorization header missing for %s %s", r.Method, r.URL.Path)
			utils.WriteError(w, utils.Unauthorized("No token provided"))
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			logging.Logger.Warnf("Event ID: AUTH_BEARER_PREFIX_MISSING, Description: Bearer prefix missing for %s %s", r.Method, r.URL.Path)
			utils.WriteError(w, utils.Unauthorized("Invalid token format"))
			return
		}

		userID, err := a.tokens.ValidateToken(strings.TrimSpace(tokenStr))
		if err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				logging.Logger.Infof("Event ID: AUTH_TOKEN_EXPIRED, Description: Expired token for %s %s", r.Method, r.URL.Path)
				utils.WriteError(w, utils.Unauthorized("Token expired"))
				return
			}
			logging.Logger.Warnf("Event ID: AUTH_INVALID_TOKEN, Description: Invalid token for %s %s: %v", r.Method, r.URL.Path, err)
			utils.WriteError(w, utils.Unauthorized("Invalid token"))
			return
		}

		user, err := a.users.FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				logging.Logger.Warnf("Event ID: AUTH_USER_GONE, Description: Token subject %s no longer exists", userID.Hex())
				utils.WriteError(w, utils.Unauthorized("Please authenticate"))
				return
			}
			logging.Logger.Errorf("Event ID: AUTH_USER_LOOKUP_FAILED, Description: %v", err)
			utils.WriteError(w, utils.Internal("Failed to authenticate", err))
			return
		}

		logging.Logger.Debugf("Event ID: AUTH_SUCCESS, Description: User %s authenticated for %s %s", user.ID.Hex(), r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey{}).(*models.User)
	return user, ok && user != nil
}
