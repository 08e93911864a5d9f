package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/ticket-relay/internal/domain"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

type staffList []domain.StaffMember

func (s staffList) ListActiveStaff(context.Context) ([]domain.StaffMember, error) {
	return s, nil
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, expires, err := tm.GenerateToken("dashboard", domain.SubjectTypeService, nil)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeService, claims.Subject)
	assert.Nil(t, claims.Role)
}

func TestTokenRejections(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)

	_, _, err := tm.GenerateToken("U1", domain.SubjectTypeRequester, nil)
	assert.Error(t, err)

	token, _, err := tm.GenerateToken("U1", domain.SubjectTypeStaff, nil)
	require.NoError(t, err)
	_, err = NewTokenManager("other", time.Minute).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateToken("U1", domain.SubjectTypeStaff, nil)
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err)
}

func newAuthApp(tm *TokenManager, staff StaffDirectory, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.SendStatus(fe.Code)
		}
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	mw := NewAuthMiddleware(tm, staff)
	app.Get("/private", mw.Handle, guard, func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.SubjectID)
	})
	return app
}

func call(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	staff := staffList{{SlackID: "UADMIN", Role: domain.StaffRoleAdmin, Active: true}, {SlackID: "UAGENT", Role: domain.StaffRoleAgent, Active: true}}
	app := newAuthApp(tm, staff, RequireStaffRole(domain.StaffRoleAdmin))

	service, _, err := tm.GenerateToken("dashboard", domain.SubjectTypeService, nil)
	require.NoError(t, err)
	admin, _, err := tm.GenerateToken("UADMIN", domain.SubjectTypeStaff, nil)
	require.NoError(t, err)
	agent, _, err := tm.GenerateToken("UAGENT", domain.SubjectTypeStaff, nil)
	require.NoError(t, err)
	gone, _, err := tm.GenerateToken("UGONE", domain.SubjectTypeStaff, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(t, app, ""))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "garbage"))
	assert.Equal(t, http.StatusOK, call(t, app, service))
	assert.Equal(t, http.StatusOK, call(t, app, admin))
	assert.Equal(t, http.StatusForbidden, call(t, app, agent))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, gone))
}
