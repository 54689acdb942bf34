package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/weather-des/internal/catalog"
	"github.com/i474232898/weather-des/internal/chat"
	"github.com/i474232898/weather-des/internal/recordstore"
	"github.com/i474232898/weather-des/internal/users"
	"github.com/i474232898/weather-des/internal/weather"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Forecast(_ context.Context, city string, points int) ([]weather.ForecastPoint, error) {
	out := make([]weather.ForecastPoint, 0, points)
	for i := 0; i < points; i++ {
		out = append(out, weather.ForecastPoint{
			City:        city,
			Temperature: 12 + float64(i),
			Timestamp:   "2024-11-10 0" + string(rune('0'+i)) + ":00:00",
		})
	}
	return out, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		weather.NZDataFile:              "city,month,temperature,year\nNelson,Feb,19.0,2023\nNelson,Jan,18.5,2023\n",
		weather.CanadianDataFile:        "city,month,temperature,year\nToronto,Jan,-6.1,2023\nToronto,Feb,-5.5,2023\n",
		weather.CurrentCanadianDataFile: "city,temperature,timestamp\nToronto,3.5,2024-11-10 00:00:00\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	cat, err := catalog.Load()
	require.NoError(t, err)

	store := recordstore.NewMemoryStore()
	dataset := weather.NewDataset(dir, nil)

	app := NewApp("weather-des-test", false)
	err = RegisterRoutes(app, Deps{
		Catalog:    cat,
		Users:      users.NewManager(store, nil, users.WithHashCost(bcrypt.MinCost)),
		Chat:       chat.NewService(store, nil),
		Current:    weather.NewCurrentService(store, dataset, stubProvider{}, nil),
		Historical: weather.NewHistoricalService(store, dataset, nil),
		Dataset:    dataset,
	})
	require.NoError(t, err)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()

	creds := `{"user":"kim","password":"pa55"}`
	resp, _ := do(t, app, http.MethodPost, "/api/v1/users/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, app, http.MethodPost, "/api/v1/users/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := body["session"].(map[string]any)
	return session["token"].(string)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp, body := do(t, app, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterLoginFlow(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)
	assert.NotEmpty(t, token)

	resp, body := do(t, app, http.MethodPost, "/api/v1/users/register", "", `{"user":"kim","password":"x"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "User Already Exists", body["message"])
	assert.Equal(t, true, body["error"])

	resp, body = do(t, app, http.MethodPost, "/api/v1/users/login", "", `{"user":"kim","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Login Failed", body["message"])

	resp, _ = do(t, app, http.MethodPost, "/api/v1/users/login", "", `{"user":"kim"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/v1/users/logout", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/session/screen", token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestScreenNavigation(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, http.MethodPost, "/api/v1/session/screen/next", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := login(t, app)

	_, body := do(t, app, http.MethodGet, "/api/v1/session/screen", token, "")
	assert.Equal(t, "DES1", body["screen"])

	_, body = do(t, app, http.MethodPost, "/api/v1/session/screen/prev", token, "")
	assert.Equal(t, "DES3", body["screen"])
	assert.Equal(t, "Yearly Comparison", body["title"])

	_, body = do(t, app, http.MethodPost, "/api/v1/session/screen/next", token, "")
	assert.Equal(t, "DES1", body["screen"])

	_, body = do(t, app, http.MethodPut, "/api/v1/session/screen", token, `{"screen":"historical"}`)
	assert.Equal(t, "DES2", body["screen"])

	resp, _ = do(t, app, http.MethodPut, "/api/v1/session/screen", token, `{"screen":"DES9"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChat(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, http.MethodPost, "/api/v1/chat/DES2", "", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := login(t, app)
	resp, _ = do(t, app, http.MethodPost, "/api/v1/chat/DES2", token, `{"message":"hello there"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/v1/chat/DES2", token, `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, app, http.MethodGet, "/api/v1/chat/historical", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["transcript"], "kim: hello there")

	resp, _ = do(t, app, http.MethodGet, "/api/v1/chat/DES5", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoricalEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, http.MethodGet, "/api/v1/historical/json?city=Nelson&year=2023", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Temperature History for Nelson", body["title"])
	series := body["series"].(map[string]any)
	assert.Equal(t, []any{"Jan", "Feb"}, series["labels"])

	resp, body = do(t, app, http.MethodGet, "/api/v1/yearly/merged?nz=Nelson&ca=Toronto&year=2023", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Temperature Comparison: Nelson vs Toronto", body["title"])

	resp, _ = do(t, app, http.MethodGet, "/api/v1/historical/merged?nz=Nelson&ca=Calgary&year=2023", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/historical/json?city=Paris", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/historical/json?city=Nelson&year=1999", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCurrentEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, http.MethodGet, "/api/v1/current/compare?nz=Nelson&ca=Toronto", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, app, http.MethodGet, "/api/v1/current/forecast?city=Nelson", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Temperature Forecast for Nelson", body["title"])
	series := body["series"].(map[string]any)
	assert.Len(t, series["values"], weather.ForecastPoints)

	resp, body = do(t, app, http.MethodGet, "/api/v1/current/compare?nz=Nelson&ca=Toronto", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	canadian := body["canadian"].(map[string]any)
	assert.Equal(t, []any{3.5}, canadian["values"])
}

func TestLocalAsPNG(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, http.MethodGet, "/api/v1/local?city=Nelson&year=2023&format=png", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))

	resp, _ = do(t, app, http.MethodGet, "/api/v1/local?city=Nelson&format=svg", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalog(t *testing.T) {
	app := newTestApp(t)
	resp, body := do(t, app, http.MethodGet, "/api/v1/catalog", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["newZealand"], "Nelson")
	assert.Contains(t, body["canada"], "Toronto")
}

func TestRegisterTagsReportsErrors(t *testing.T) {
	always := func(validator.FieldLevel) bool { return true }

	err := registerTags(validator.New(), map[string]validator.Func{"": always})
	assert.Error(t, err)

	assert.NoError(t, registerTags(validator.New(), map[string]validator.Func{"nzcity": always}))
}

func TestFailMapsMissingRecordsToNotFound(t *testing.T) {
	h := &handler{Deps: Deps{Logger: zap.NewNop()}}

	for _, cause := range []error{recordstore.ErrNoData, recordstore.ErrNoTable, weather.ErrNoData} {
		err := h.fail(fmt.Errorf("look up kim: %w", cause))

		var fe *fiber.Error
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, fiber.StatusNotFound, fe.Code, cause.Error())
	}

	var fe *fiber.Error
	require.True(t, errors.As(h.fail(errors.New("boom")), &fe))
	assert.Equal(t, fiber.StatusInternalServerError, fe.Code)
}
