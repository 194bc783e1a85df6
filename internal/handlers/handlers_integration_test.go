package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"realestate/internal/cache"
	"realestate/internal/models"
	"realestate/internal/repositories"
	"realestate/internal/server"
	"realestate/internal/services"
	"realestate/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "password123"
	jwtSecret     = "test_jwt_secret"
)

// setupApp builds the full application over repo with a local administrator.
func setupApp(t *testing.T, repo repositories.PropertyRepository) *fiber.App {
	t.Helper()

	users := repositories.NewInMemoryUserRepository()
	local := services.NewLocalAuthenticator(users)
	require.NoError(t, local.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	searchCache := cache.NewSearchCache(nil, 0)
	t.Cleanup(func() { searchCache.Close() })

	return server.New(server.Deps{
		AppName:     "realestate-test",
		Properties:  services.NewPropertyService(repo, searchCache, nil),
		Auth:        services.NewAuthService(local, repositories.NewInMemorySessionStore(), jwtSecret, 0),
		CORSOrigins: "*",
	})
}

func setupGORMRepo(t *testing.T) repositories.PropertyRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err, "failed to connect to in-memory database")
	require.NoError(t, db.AutoMigrate(&models.Property{}), "failed to auto-migrate database")
	return repositories.NewGORMPropertyRepository(db)
}

// TestMain silences logging for cleaner test output.
func TestMain(m *testing.M) {
	logger.Log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func newListing(title string, price interface{}, pool bool) map[string]interface{} {
	return map[string]interface{}{
		"title":            title,
		"price":            price,
		"numberRooms":      3,
		"numberBathrooms":  2,
		"numberParkinLots": 1,
		"description":      "Una propiedad muy bien ubicada",
		"hasPool":          pool,
		"imageId":          "img-123",
		"location":         []float64{19.4326, -99.1332},
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(t, repositories.NewInMemoryPropertyRepository())
	resp, body := doRequest(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthLogin(t *testing.T) {
	app := setupApp(t, repositories.NewInMemoryPropertyRepository())

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "not-an-email", "password": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs, _ := body["errors"].(map[string]interface{})
	assert.Equal(t, "Email no válido", errs["email"])
	assert.Equal(t, "El Password es Obligatorio", errs["password"])

	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": adminEmail, "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials.", body["error"])

	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": adminPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "User not found.", body["error"])

	token := login(t, app)

	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/auth/login", token, map[string]string{
		"email": adminEmail, "password": adminPassword,
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "signed-in users are sent to the dashboard")
	assert.Equal(t, "admin", body["redirect"])
	assert.Equal(t, "/api/v1/admin/properties", resp.Header.Get("Location"))
}

func TestSessionAndLogout(t *testing.T) {
	app := setupApp(t, repositories.NewInMemoryPropertyRepository())

	_, body := doRequest(t, app, http.MethodGet, "/api/v1/auth/session", "", nil)
	assert.Equal(t, false, body["authenticated"])

	token := login(t, app)
	_, body = doRequest(t, app, http.MethodGet, "/api/v1/auth/session", token, nil)
	assert.Equal(t, true, body["authenticated"])

	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/admin/properties", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "login", body["redirect"])
}

func TestAdminRequiresAuth(t *testing.T) {
	app := setupApp(t, repositories.NewInMemoryPropertyRepository())

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/admin/properties", "", newListing("Casa de campo", 100, false))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "login", body["redirect"])

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/admin/properties", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestValidateForm(t *testing.T) {
	app := setupApp(t, repositories.NewInMemoryPropertyRepository())
	token := login(t, app)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/admin/properties/validate", token, map[string]interface{}{
		"title": "Casa", "price": 0, "numberRooms": 1, "numberBathrooms": 1, "numberParkinLots": 1, "description": "",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs, _ := body["errors"].(map[string]interface{})
	assert.Len(t, errs, 3)
	assert.Equal(t, "Precio no valido", errs["price"])

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/properties/validate", token, map[string]interface{}{
		"title": "Casa grande", "price": 10, "numberRooms": 1, "numberBathrooms": 1, "numberParkinLots": 1, "description": "x",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPropertyCRUD(t *testing.T) {
	backends := map[string]func(t *testing.T) repositories.PropertyRepository{
		"memory": func(t *testing.T) repositories.PropertyRepository { return repositories.NewInMemoryPropertyRepository() },
		"sqlite": setupGORMRepo,
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			runPropertyCRUD(t, setupApp(t, newRepo(t)))
		})
	}
}

func runPropertyCRUD(t *testing.T, app *fiber.App) {
	token := login(t, app)

	// Create
	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/admin/properties", token, newListing("  Casa con jardín ", "250000", true))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	created := body["data"].(map[string]interface{})
	id := created["id"].(string)
	assert.Equal(t, "Casa con jardín", created["title"])
	assert.Equal(t, "$250,000.00", created["priceFormatted"])
	assert.NotContains(t, created, "titleNormalized")

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/admin/properties", token, newListing("Departamento", 90000, false))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/admin/properties", token, newListing("Casa", 100, false))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Title must be at least 6 characters long", body["error"])
	assert.Equal(t, map[string]interface{}{"title": "Title must be at least 6 characters long"}, body["errors"])

	incomplete := newListing("Casa amplia", 100, false)
	delete(incomplete, "hasPool")
	delete(incomplete, "numberRooms")
	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/admin/properties", token, incomplete)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields, _ := body["errors"].(map[string]interface{})
	assert.Equal(t, "Pool information is required", fields["hasPool"])
	assert.Equal(t, "Number of rooms is required", fields["numberRooms"])

	resp, body = doRequest(t, app, http.MethodPost, "/api/v1/admin/properties", token, newListing("Casa amplia", "gratis", false))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Price must be a valid number", body["error"])

	// Read
	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/properties/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, id, body["data"].(map[string]interface{})["id"])

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/properties/short", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Property ID must be at least 20 characters long", body["error"])

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/properties", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := body["data"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "Casa con jardín", list[0].(map[string]interface{})["title"], "ordered by normalized title")

	// Search
	_, body = doRequest(t, app, http.MethodGet, "/api/v1/properties?title=casa%20con%20JARDIN", "", nil)
	assert.Len(t, body["data"].([]interface{}), 1)

	_, body = doRequest(t, app, http.MethodGet, "/api/v1/properties?title=&hasPool=false&moreFilters=true", "", nil)
	results := body["data"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "Departamento", results[0].(map[string]interface{})["title"])

	_, body = doRequest(t, app, http.MethodGet, "/api/v1/properties?hasPool=false", "", nil)
	assert.Len(t, body["data"].([]interface{}), 2, "hasPool is ignored unless more filters are active")

	_, body = doRequest(t, app, http.MethodGet, "/api/v1/properties?moreFilters=true&priceSort=asc", "", nil)
	results = body["data"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "Departamento", results[0].(map[string]interface{})["title"])

	// Update
	update := newListing("Casa con jardín y alberca", 260000, true)
	update["id"] = "ignored-because-path-wins"
	resp, body = doRequest(t, app, http.MethodPut, "/api/v1/admin/properties/"+id, token, update)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "$260,000.00", body["data"].(map[string]interface{})["priceFormatted"])

	_, body = doRequest(t, app, http.MethodGet, "/api/v1/properties?title=casa%20con%20jardin%20y", "", nil)
	assert.Len(t, body["data"].([]interface{}), 1)

	bad := newListing("Casa con jardín", 260000, true)
	bad["location"] = []float64{95, 0}
	resp, body = doRequest(t, app, http.MethodPut, "/api/v1/admin/properties/"+id, token, bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Location must be a [latitude, longitude] pair", body["error"])
	assert.Contains(t, body["errors"], "location")

	// Delete
	resp, _ = doRequest(t, app, http.MethodDelete, "/api/v1/admin/properties/"+id, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = doRequest(t, app, http.MethodGet, "/api/v1/properties?title=casa%20con%20JARDIN", "", nil)
	assert.Empty(t, body["data"].([]interface{}), "writes invalidate cached searches")

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/properties/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No such document!", body["error"])

	resp, _ = doRequest(t, app, http.MethodDelete, "/api/v1/admin/properties/"+id, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "deleting a missing listing succeeds")
}
