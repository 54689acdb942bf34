package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-des/internal/catalog"
	"github.com/i474232898/weather-des/internal/chart"
	"github.com/i474232898/weather-des/internal/chat"
	"github.com/i474232898/weather-des/internal/common"
	"github.com/i474232898/weather-des/internal/recordstore"
	"github.com/i474232898/weather-des/internal/resilience"
	"github.com/i474232898/weather-des/internal/users"
	"github.com/i474232898/weather-des/internal/weather"
)

// SessionHeader carries the token returned by login.
const SessionHeader = "X-Session-Token"

// Deps are the services the API is served from.
type Deps struct {
	Catalog    *catalog.Catalog
	Users      *users.Manager
	Chat       *chat.Service
	Current    *weather.CurrentService
	Historical *weather.HistoricalService
	Dataset    *weather.Dataset
	Logger     *zap.Logger

	ChartWidth  int
	ChartHeight int
}

type handler struct {
	Deps
	validate *validator.Validate
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ChartWidth == 0 || deps.ChartHeight == 0 {
		deps.ChartWidth, deps.ChartHeight = 800, 500
	}
	validate, err := newValidator(deps.Catalog)
	if err != nil {
		return err
	}
	h := &handler{Deps: deps, validate: validate}

	v1 := app.Group("/api/v1")

	v1.Get("/catalog", h.catalog)

	v1.Post("/users/register", h.register)
	v1.Post("/users/login", h.login)
	v1.Post("/users/logout", h.requireSession, h.logout)

	session := v1.Group("/session", h.requireSession)
	session.Get("/screen", h.getScreen)
	session.Put("/screen", h.setScreen)
	session.Post("/screen/next", h.nextScreen)
	session.Post("/screen/prev", h.prevScreen)

	v1.Get("/chat/:screen", h.chatHistory)
	v1.Post("/chat/:screen", h.requireSession, h.chatSend)

	v1.Get("/current/forecast", h.currentForecast)
	v1.Get("/current/compare", h.currentCompare)

	v1.Get("/historical/json", h.cityYear(chart.Historical))
	v1.Get("/historical/merged", h.merged(chart.Historical))
	v1.Get("/yearly/json", h.cityYear(chart.Yearly))
	v1.Get("/yearly/merged", h.merged(chart.Yearly))

	v1.Get("/local", h.local)
	return nil
}

func newValidator(cat *catalog.Catalog) (*validator.Validate, error) {
	v := validator.New()
	err := registerTags(v, map[string]validator.Func{
		"nzcity": func(fl validator.FieldLevel) bool {
			return cat.IsNZCity(fl.Field().String())
		},
		"cacity": func(fl validator.FieldLevel) bool {
			return cat.IsCanadianCity(fl.Field().String())
		},
		"dataset_year": func(fl validator.FieldLevel) bool {
			return cat.HasYear(fl.Field().String())
		},
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register validation tag %q: %w", tag, err)
		}
	}
	return nil
}

func (h *handler) catalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"defaults":   h.Catalog.Defaults,
		"years":      h.Catalog.Years,
		"newZealand": h.Catalog.NZCityNames(),
		"canada":     h.Catalog.CanadianCityNames(),
	})
}

// bindQuery fills q from the query string, applies catalogue defaults and
// validates it.
func (h *handler) bindQuery(c *fiber.Ctx, q *dataQuery) error {
	if err := c.QueryParser(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q.City = common.FirstNonEmpty(q.City, q.NZ, h.Catalog.Defaults.NZCity)
	q.NZ = common.FirstNonEmpty(q.NZ, q.City)
	q.CA = common.FirstNonEmpty(q.CA, h.Catalog.Defaults.CanadianCity)
	q.Year = common.FirstNonEmpty(q.Year, h.Catalog.Defaults.Year)
	q.Format = common.FirstNonEmpty(q.Format, formatJSON)

	if err := h.validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *handler) currentForecast(c *fiber.Ctx) error {
	var q dataQuery
	if err := h.bindQuery(c, &q); err != nil {
		return err
	}

	series, err := h.Current.FetchForecast(c.UserContext(), q.City)
	if err != nil {
		return h.fail(err)
	}
	return h.respondSeries(c, q.Format, chart.Current(&series, nil), series)
}

func (h *handler) currentCompare(c *fiber.Ctx) error {
	var q dataQuery
	if err := h.bindQuery(c, &q); err != nil {
		return err
	}

	cmp, err := h.Current.Compare(c.UserContext(), q.NZ, q.CA)
	if err != nil {
		return h.fail(err)
	}
	return h.respondComparison(c, q.Format, chart.Current(&cmp.NZ, &cmp.Canadian), cmp)
}

func (h *handler) cityYear(build func(nz, ca *weather.Series) chart.Chart) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q dataQuery
		if err := h.bindQuery(c, &q); err != nil {
			return err
		}

		series, err := h.Historical.FetchCityYear(c.UserContext(), q.City, q.year())
		if err != nil {
			return h.fail(err)
		}
		return h.respondSeries(c, q.Format, build(&series, nil), series)
	}
}

func (h *handler) merged(build func(nz, ca *weather.Series) chart.Chart) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q dataQuery
		if err := h.bindQuery(c, &q); err != nil {
			return err
		}

		cmp, err := h.Historical.FetchComparison(c.UserContext(), q.NZ, q.CA, q.year())
		if err != nil {
			return h.fail(err)
		}
		return h.respondComparison(c, q.Format, build(&cmp.NZ, &cmp.Canadian), cmp)
	}
}

func (h *handler) local(c *fiber.Ctx) error {
	var q dataQuery
	if err := h.bindQuery(c, &q); err != nil {
		return err
	}

	series, err := h.Dataset.LocalCityYear(q.City, q.year())
	if err != nil {
		return h.fail(err)
	}
	return h.respondSeries(c, q.Format, chart.Historical(&series, nil), series)
}

func (h *handler) respondSeries(c *fiber.Ctx, format string, ch chart.Chart, series weather.Series) error {
	if format == formatPNG {
		return h.renderPNG(c, ch)
	}
	return c.JSON(fiber.Map{
		"title":  ch.Title,
		"series": series,
	})
}

func (h *handler) respondComparison(c *fiber.Ctx, format string, ch chart.Chart, cmp weather.Comparison) error {
	if format == formatPNG {
		return h.renderPNG(c, ch)
	}
	return c.JSON(fiber.Map{
		"title":    ch.Title,
		"nz":       cmp.NZ,
		"canadian": cmp.Canadian,
	})
}

func (h *handler) renderPNG(c *fiber.Ctx, ch chart.Chart) error {
	var buf bytes.Buffer
	if err := chart.RenderPNG(&buf, ch, h.ChartWidth, h.ChartHeight); err != nil {
		h.Logger.Error("render chart", zap.String("title", ch.Title), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart")
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

// fail maps service errors to HTTP errors.
func (h *handler) fail(err error) error {
	switch {
	case errors.Is(err, weather.ErrNoData),
		errors.Is(err, recordstore.ErrNoData),
		errors.Is(err, recordstore.ErrNoTable):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrUserExists):
		return fiber.NewError(fiber.StatusConflict, "User Already Exists")
	case errors.Is(err, users.ErrLoginFailed):
		return fiber.NewError(fiber.StatusUnauthorized, "Login Failed")
	case errors.Is(err, users.ErrNotLoggedIn):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials), errors.Is(err, chat.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrRateLimited):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	var storeErr *recordstore.Error
	if errors.As(err, &storeErr) {
		h.Logger.Warn("record store error", zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	h.Logger.Error("request failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

const (
	formatJSON = "json"
	formatPNG  = "png"
)

// dataQuery holds the query parameters shared by the data endpoints.
// City is the single-city selector; NZ and CA select a comparison.
type dataQuery struct {
	City   string `query:"city" validate:"required,nzcity"`
	NZ     string `query:"nz" validate:"required,nzcity"`
	CA     string `query:"ca" validate:"required,cacity"`
	Year   string `query:"year" validate:"required,numeric,dataset_year"`
	Format string `query:"format" validate:"oneof=json png"`
}

func (q dataQuery) year() int {
	y, _ := strconv.Atoi(q.Year)
	return y
}
