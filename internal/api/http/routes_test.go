package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsweather/kidsweather/internal/report"
)

type fakeBuilder struct {
	rep     *report.Report
	err     error
	lastReq report.Request
}

func (f *fakeBuilder) Build(_ context.Context, req report.Request) (*report.Report, error) {
	f.lastReq = req
	return f.rep, f.err
}

func newTestApp(b ReportBuilder) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
	RegisterRoutes(app, b)
	return app
}

func sampleReport() *report.Report {
	temp := 73
	return &report.Report{
		Description: "Sunny!",
		Temperature: &temp,
		ModelUsed:   "test-model",
	}
}

func TestWeatherJSONRoute(t *testing.T) {
	b := &fakeBuilder{rep: sampleReport()}
	app := newTestApp(b)

	resp, err := app.Test(httptest.NewRequest("GET", "/weather.json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rep report.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.Equal(t, "Sunny!", rep.Description)
	require.NotNil(t, rep.Temperature)
	assert.Equal(t, 73, *rep.Temperature)

	assert.True(t, b.lastReq.IncludeYesterday)
	assert.True(t, b.lastReq.LogInteraction)
	assert.Equal(t, "web", b.lastReq.Source)
	assert.Nil(t, b.lastReq.Lat)
}

func TestRootRouteServesReport(t *testing.T) {
	b := &fakeBuilder{rep: sampleReport()}
	app := newTestApp(b)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWeatherTextRoute(t *testing.T) {
	b := &fakeBuilder{rep: sampleReport()}
	app := newTestApp(b)

	resp, err := app.Test(httptest.NewRequest("GET", "/weather.txt", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Sunny!", string(body))
}

func TestHealthRoute(t *testing.T) {
	app := newTestApp(&fakeBuilder{})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestReportRouteCoordinates(t *testing.T) {
	b := &fakeBuilder{rep: sampleReport()}
	app := newTestApp(b)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/report?lat=38.9&lon=-77.0&model=alt", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, b.lastReq.Lat)
	assert.Equal(t, 38.9, *b.lastReq.Lat)
	require.NotNil(t, b.lastReq.Lon)
	assert.Equal(t, -77.0, *b.lastReq.Lon)
	assert.Equal(t, "alt", b.lastReq.ModelOverride)
}

func TestReportRouteLoneCoordinateRejected(t *testing.T) {
	app := newTestApp(&fakeBuilder{rep: sampleReport()})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/report?lat=38.9", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReportRouteOutOfRangeRejected(t *testing.T) {
	app := newTestApp(&fakeBuilder{rep: sampleReport()})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/report?lat=123.0&lon=-77.0", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestBuilderFailureIsBadGateway(t *testing.T) {
	app := newTestApp(&fakeBuilder{err: errors.New("both LLM providers failed")})

	resp, err := app.Test(httptest.NewRequest("GET", "/weather.json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["message"], "both LLM providers failed")
}
