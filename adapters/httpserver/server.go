package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/SeaCloudHub/objdetect/adapters/engine"
	"github.com/SeaCloudHub/objdetect/adapters/httpserver/model"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/apperror"
	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/SeaCloudHub/objdetect/pkg/sentry"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Options func(s *Server) error

// EngineStatus reports where the engine is in its lifecycle.
type EngineStatus interface {
	State() engine.State
}

type Server struct {
	router *echo.Echo
	Config *config.Config
	Logger *zap.SugaredLogger

	// services
	DetectionService detection.Service

	// engine lifecycle, used by the readiness probe
	EngineStatus EngineStatus
}

func New(cfg *config.Config, logger *zap.SugaredLogger, options ...Options) (*Server, error) {
	renderer, err := newTemplateRenderer()
	if err != nil {
		return nil, err
	}

	s := Server{
		router: echo.New(),
		Config: cfg,
		Logger: logger,
	}
	s.router.HideBanner = true
	s.router.Renderer = renderer
	s.router.HTTPErrorHandler = s.httpErrorHandler

	for _, fn := range options {
		if err := fn(&s); err != nil {
			return nil, err
		}
	}

	s.RegisterGlobalMiddlewares()
	s.RegisterHealthCheck(s.router.Group(""))
	s.RegisterPageRoutes(s.router.Group(""))
	s.RegisterAPIRoutes(s.router.Group("/api"))

	return &s, nil
}

func WithDetectionService(svc detection.Service) Options {
	return func(s *Server) error {
		s.DetectionService = svc
		return nil
	}
}

func WithEngineStatus(status EngineStatus) Options {
	return func(s *Server) error {
		s.EngineStatus = status
		return nil
	}
}

func (s *Server) RegisterGlobalMiddlewares() {
	s.router.Use(middleware.Recover())
	s.router.Use(middleware.Secure())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Gzip())
	s.router.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	if limit := s.Config.BodyLimit(); limit != "" {
		s.router.Use(middleware.BodyLimit(limit))
	}

	if s.Config.RequestTimeout > 0 {
		// The deadline travels in the request context; handlers report it
		// like any other pipeline error.
		s.router.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Skipper: isHealthCheck,
			Timeout: s.Config.RequestTimeout,
			ErrorHandler: func(err error, c echo.Context) error {
				return err
			},
		}))
	}

	// CORS
	if s.Config.AllowOrigins != "" {
		aos := strings.Split(s.Config.AllowOrigins, ",")
		s.router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: aos,
		}))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func isHealthCheck(c echo.Context) bool {
	switch c.Request().URL.Path {
	case "/health", "/healthz", "/readyz":
		return true
	}

	return false
}

func (s *Server) RegisterHealthCheck(router *echo.Group) {
	health := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	router.GET("/health", health)
	router.GET("/healthz", health)
	router.GET("/readyz", s.Ready)
}

// Ready answers 200 once the engine is loaded and 503 before that.
func (s *Server) Ready(c echo.Context) error {
	state := engine.Unloaded
	if s.EngineStatus != nil {
		state = s.EngineStatus.State()
	}

	if state != engine.Ready {
		return c.String(http.StatusServiceUnavailable, state.String())
	}

	return c.String(http.StatusOK, state.String())
}

// toAppError maps pipeline errors onto coded application errors.
func toAppError(err error) apperror.Error {
	var appErr apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.ErrTimeout(err)
	case isBodyTooLarge(err):
		return apperror.ErrFileTooLarge(err)
	case errors.Is(err, detection.ErrTooManyPixels):
		return apperror.ErrTooManyPixels(err)
	case errors.Is(err, detection.ErrMissingFile), errors.Is(err, detection.ErrEmptyFile):
		return apperror.ErrEmptyFile(err)
	case errors.Is(err, detection.ErrFileTooLarge):
		return apperror.ErrFileTooLarge(err)
	case errors.Is(err, detection.ErrEngineUnavailable):
		return apperror.ErrEngineUnavailable(err)
	}

	switch detection.Kind(err) {
	case detection.ErrValidation:
		return apperror.ErrInvalidParam(err)
	case detection.ErrDecode:
		return apperror.ErrUnsupportedImage(err)
	case detection.ErrInference:
		return apperror.ErrInference(err)
	case detection.ErrEmptyResult:
		return apperror.ErrNoDetections(err)
	}

	return apperror.ErrInternalServer(err)
}

// isBodyTooLarge reports whether err comes from the body limit, either
// up front from Content-Length or while the body was being read.
func isBodyTooLarge(err error) bool {
	if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		return true
	}

	var he *echo.HTTPError

	return errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge
}

func (s *Server) report(c echo.Context, appErr apperror.Error) {
	s.Logger.Errorw(
		appErr.Error(),
		zap.String("request_id", s.requestID(c)),
		zap.String("code", appErr.ErrorCode),
	)

	if appErr.HTTPCode >= http.StatusInternalServerError {
		sentry.WithContext(c).Error(appErr)
	}
}

func (s *Server) error(c echo.Context, err error) error {
	appErr := toAppError(err)
	s.report(c, appErr)

	var errMessage string
	if appErr.Raw != nil {
		errMessage = appErr.Raw.Error()
	}

	return c.JSON(appErr.HTTPCode, model.ErrorResponse{
		Code:    appErr.ErrorCode,
		Message: appErr.Message,
		Info:    errMessage,
	})
}

func (s *Server) success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, model.SuccessResponse{
		Message: "OK",
		Data:    data,
	})
}

// httpErrorHandler handles errors raised outside the handlers, such as an
// oversized body or an unknown route. Pages get the form back with a banner,
// everything else a JSON error.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr apperror.Error

	var he *echo.HTTPError
	switch {
	case isBodyTooLarge(err):
		appErr = apperror.ErrFileTooLarge(err)
	case errors.As(err, &he):
		appErr = apperror.NewError(err, he.Code, apperror.BindingCode, http.StatusText(he.Code))
	default:
		appErr = toAppError(err)
	}

	if he != nil && he.Code < http.StatusInternalServerError && !isBodyTooLarge(err) {
		// Routing errors are not worth an error log.
		s.Logger.Debugw(err.Error(), zap.String("request_id", s.requestID(c)))
	} else {
		s.report(c, appErr)
	}

	if c.Request().Method == http.MethodPost && c.Request().URL.Path == "/" {
		_ = s.renderPage(c, appErr.HTTPCode, newPage().withError(appErr))
		return
	}

	_ = c.JSON(appErr.HTTPCode, model.ErrorResponse{
		Code:    appErr.ErrorCode,
		Message: appErr.Message,
	})
}

func (s *Server) requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
