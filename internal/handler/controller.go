package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trend-go/internal/service"
	"trend-go/pkg/logger"
	"trend-go/pkg/model"
)

// Controller maps HTTP routes onto the trend service.
type Controller struct {
	trends service.TrendService
	log    *logger.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewController(trends service.TrendService) *Controller {
	return &Controller{
		trends: trends,
		log:    logger.Component("http"),
	}
}

// NewApp builds the fiber app with every route registered.
func NewApp(controller *Controller) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "trend-go",
		UnescapePath:          true,
		DisableStartupMessage: true,
		ErrorHandler:          controller.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	controller.Register(app)
	return app
}

func (c *Controller) Register(app *fiber.App) {
	app.Get("/", c.Root)
	app.Get("/healthz", c.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/trends", c.GetTrends)
	api.Get("/analyze/:keyword", c.Analyze)
	api.Get("/trend-data/:keyword", c.GetTrendData)
	api.Post("/refresh", c.Refresh)
}

func (c *Controller) Root(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"message": "Korea Trend API is running"})
}

func (c *Controller) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "healthy"})
}

// GetTrends handles GET /api/trends?category=.
func (c *Controller) GetTrends(ctx *fiber.Ctx) error {
	category := strings.TrimSpace(ctx.Query("category", model.CategoryAll))
	return ctx.JSON(c.trends.GetTrends(ctx.UserContext(), category))
}

// Analyze handles GET /api/analyze/:keyword.
func (c *Controller) Analyze(ctx *fiber.Ctx) error {
	keyword, err := keywordParam(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(c.trends.GetAnalysis(ctx.UserContext(), keyword))
}

// GetTrendData handles GET /api/trend-data/:keyword?period=1mo|1yr|30d|365d.
func (c *Controller) GetTrendData(ctx *fiber.Ctx) error {
	keyword, err := keywordParam(ctx)
	if err != nil {
		return err
	}
	period := ctx.Query("period", service.DefaultPeriod)
	return ctx.JSON(c.trends.GetTimeSeries(ctx.UserContext(), keyword, period))
}

// Refresh handles POST /api/refresh. The cycle runs in the background.
func (c *Controller) Refresh(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusAccepted).JSON(c.trends.TriggerRefresh(ctx.UserContext()))
}

func keywordParam(ctx *fiber.Ctx) (string, error) {
	keyword := strings.TrimSpace(ctx.Params("keyword"))
	if keyword == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "keyword is required")
	}
	return keyword, nil
}

func (c *Controller) handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		c.log.WithError(err).WithField("path", ctx.Path()).Error("Request failed")
	}
	return ctx.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
