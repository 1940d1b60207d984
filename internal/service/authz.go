package service

import (
	"github.com/sekolahku/psb-api/internal/models"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

// Authorize is the single authorization policy: it checks that the acting
// user's role claim is one of the required roles. Called at the top of
// every mutating operation and by the RBAC middleware, so role rules live
// in one place instead of being scattered per route.
func Authorize(claims *models.JWTClaims, required ...models.UserRole) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if len(required) == 0 {
		return nil
	}
	for _, role := range required {
		if claims.Role == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
