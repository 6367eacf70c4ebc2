package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/handler"
	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/middleware"
	"workforce-license-engine/internal/model"
	"workforce-license-engine/internal/service"
	"workforce-license-engine/internal/util"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	database.InitTestDB()
	t.Cleanup(database.CleanTestDB)

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	app.Get("/orgs/:id/certificates",
		middleware.LoadOrganization(),
		middleware.RequireFeature(license.FeatureCertificates),
		func(c *fiber.Ctx) error {
			return c.SendString(middleware.GetOrganization(c).Name)
		},
	)
	app.Get("/me", middleware.Auth(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Locals("userID")})
	})
	app.Get("/admin", middleware.Auth(), middleware.AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func createOrg(t *testing.T) *model.Organization {
	t.Helper()
	org, err := service.CreateTrial(&model.TrialSignupInput{
		OrganizationName: "Acme Corp",
		OrganizationType: string(license.OrgWorkforceBoard),
		ContactName:      "Jane Doe",
		ContactEmail:     "jane@acme.org",
	})
	require.NoError(t, err)
	return org
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRequireFeature(t *testing.T) {
	app := newApp(t)
	org := createOrg(t)

	t.Run("blocked during trial", func(t *testing.T) {
		resp := get(t, app, "/orgs/"+org.ID+"/certificates", "")
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "certificate_issuance", body["feature"])
		assert.Equal(t, "trial", body["state"])
		assert.Equal(t, license.RestrictionMessage(license.FeatureCertificates, license.StateTrial), body["error"])
	})

	t.Run("open once licensed", func(t *testing.T) {
		_, changed, err := service.Upgrade(org.ID, 1, "")
		require.NoError(t, err)
		require.True(t, changed)

		resp := get(t, app, "/orgs/"+org.ID+"/certificates", "")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("decisions are recorded", func(t *testing.T) {
		checks, err := service.GetFeatureChecks(org.ID, 10)
		require.NoError(t, err)
		require.Len(t, checks, 2)
		assert.True(t, checks[0].Allowed)
		assert.False(t, checks[1].Allowed)
	})

	t.Run("unknown organization", func(t *testing.T) {
		resp := get(t, app, "/orgs/missing/certificates", "")
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestRequireFeature_Expired(t *testing.T) {
	app := newApp(t)
	org := createOrg(t)

	prev := service.Now
	service.Now = func() time.Time { return org.TrialExpiresAt.Add(time.Second) }
	t.Cleanup(func() { service.Now = prev })

	resp := get(t, app, "/orgs/"+org.ID+"/certificates", "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "expired", body["state"])
}

func TestAuth(t *testing.T) {
	app := newApp(t)

	token, err := util.GenerateToken(42)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", "").StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", token).StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", "Bearer not-a-token").StatusCode)
	assert.Equal(t, fiber.StatusOK, get(t, app, "/me", "Bearer "+token).StatusCode)

	// 用户 42 不存在
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/admin", "Bearer "+token).StatusCode)

	var admin model.User
	require.NoError(t, database.DB.Where("username = ?", database.TestAdmin.Username).First(&admin).Error)
	adminToken, err := util.GenerateToken(admin.ID)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, get(t, app, "/admin", "Bearer "+adminToken).StatusCode)
}
