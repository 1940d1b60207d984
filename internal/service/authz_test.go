package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sekolahku/psb-api/internal/models"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

func TestAuthorizeNilClaims(t *testing.T) {
	err := Authorize(nil, models.RoleAdmin)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthorizeNoRequiredRoles(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}
	assert.NoError(t, Authorize(claims))
}

func TestAuthorizeMatchingRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleRegistration}
	assert.NoError(t, Authorize(claims, models.RoleAdmin, models.RoleRegistration))
}

func TestAuthorizeRoleMismatch(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}
	err := Authorize(claims, models.RoleAdmin, models.RoleRegistration)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
