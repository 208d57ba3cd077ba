package httpapi

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kidsweather/kidsweather/internal/report"
)

var validate = validator.New()

// ReportBuilder builds one report per request.
type ReportBuilder interface {
	Build(ctx context.Context, req report.Request) (*report.Report, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, builder ReportBuilder) {
	defaultReport := func(c *fiber.Ctx) (*report.Report, error) {
		rep, err := builder.Build(c.Context(), report.Request{
			IncludeYesterday: true,
			LogInteraction:   true,
			Source:           "web",
		})
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return rep, nil
	}

	app.Get("/", func(c *fiber.Ctx) error {
		rep, err := defaultReport(c)
		if err != nil {
			return err
		}
		return c.JSON(rep)
	})

	app.Get("/weather.json", func(c *fiber.Ctx) error {
		rep, err := defaultReport(c)
		if err != nil {
			return err
		}
		return c.JSON(rep)
	})

	app.Get("/weather.txt", func(c *fiber.Ctx) error {
		rep, err := defaultReport(c)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(rep.Description)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "kids-weather",
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/report", func(c *fiber.Ctx) error {
		var q reportQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rep, err := builder.Build(c.Context(), report.Request{
			Lat:              q.Lat,
			Lon:              q.Lon,
			IncludeYesterday: !q.SkipYesterday,
			LogInteraction:   true,
			Source:           "web",
			ModelOverride:    q.Model,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(rep)
	})
}

// reportQuery holds query parameters for the report endpoint. Coordinates
// must come in pairs.
type reportQuery struct {
	Lat           *float64 `validate:"omitempty,latitude"`
	Lon           *float64 `validate:"omitempty,longitude"`
	Model         string
	SkipYesterday bool
}

func (q *reportQuery) bind(c *fiber.Ctx) error {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if (latStr == "") != (lonStr == "") {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon must be provided together")
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid lat")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid lon")
		}
		q.Lat, q.Lon = &lat, &lon
	}
	q.Model = c.Query("model")
	q.SkipYesterday = c.QueryBool("skip_yesterday", false)
	return nil
}
