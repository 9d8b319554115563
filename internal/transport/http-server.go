package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/config"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/models"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/service"
)

var (
	Module = fx.Provide(
		NewHTTPServer,
	)
)

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		e      *echo.Echo
		ideas  *service.Ideas
		logger *zap.SugaredLogger
	}
)

// NewHTTPServer builds the server and ties its listener to the fx lifecycle.
func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, ideas *service.Ideas, logger *zap.SugaredLogger) *HTTPServer {
	instance := New(ideas, logger)
	e := instance.e

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Listen()
				logger.Infow("Starting HTTP server.", "listen", listen)
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("shutting down the server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return instance
}

// New registers routes and middleware without starting a listener.
func New(ideas *service.Ideas, logger *zap.SugaredLogger) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	instance := HTTPServer{
		e:      e,
		ideas:  ideas,
		logger: logger,
	}

	ideaG := e.Group("/api/ideas")
	ideaG.GET("/random", instance.IdeaRandom)
	ideaG.GET("/search", instance.IdeaSearch)
	ideaG.GET("/suggest", instance.IdeaSuggest)
	ideaG.GET("/:id", instance.IdeaGet)
	ideaG.POST("", instance.IdeaCreate)
	ideaG.PUT("/:id", instance.IdeaUpdate)
	ideaG.POST("/:id/status", instance.IdeaSetStatus)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Errorw("request failed", append(fields, "error", v.Error)...)
				return nil
			}
			logger.Infow("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return &instance
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *HTTPServer) IdeaRandom(c echo.Context) error {
	req := models.IdeaRandomReq{}
	if err := BindQueryAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := s.ideas.Random(c.Request().Context(), req.Status)
	if err != nil {
		if errors.Is(err, service.ErrIdeaNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No ideas found")
		}
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IdeaGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	resp, err := s.ideas.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IdeaCreate(c echo.Context) error {
	req := models.IdeaCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := s.ideas.Create(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IdeaUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := models.IdeaUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := s.ideas.Update(c.Request().Context(), id, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IdeaSetStatus(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := models.IdeaStatusReq{}
	if err := BindQueryAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := s.ideas.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IdeaSearch(c echo.Context) error {
	req := models.IdeaSearchReq{}
	if err := BindQueryAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := s.ideas.Search(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) IdeaSuggest(c echo.Context) error {
	req := models.IdeaSearchReq{}
	if err := BindQueryAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := s.ideas.Suggest(c.Request().Context(), req.Keyword, req.Tags)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

////////

// mapError turns service sentinels into HTTP errors. Anything else is a
// store failure and is left to echo's default 500 handling.
func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrIdeaNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Idea not found")
	case errors.Is(err, service.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// BindQueryAndValidate binds query parameters regardless of the HTTP method.
func BindQueryAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = (&echo.DefaultBinder{}).BindQueryParams(c, v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (int64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseInt(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return vv, nil
}
