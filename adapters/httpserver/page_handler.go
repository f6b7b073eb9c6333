package httpserver

import (
	"errors"
	"net/http"

	"github.com/SeaCloudHub/objdetect/adapters/httpserver/model"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/app"
	"github.com/SeaCloudHub/objdetect/pkg/apperror"
	"github.com/labstack/echo/v4"
)

const (
	indexTemplate = "index.html"
	fileField     = "file"
)

// page is the data handed to index.html. Keys match the template variables.
type page map[string]interface{}

func newPage() page {
	return page{
		"input_image_data":  "",
		"output_image_data": "",
		"input_mime":        "",
		"error":             "",
		"detections":        nil,
		"filename":          "",
	}
}

func (p page) withOutcome(o *detection.Outcome) page {
	p["input_image_data"] = o.InputImage
	p["output_image_data"] = o.OutputImage
	p["input_mime"] = o.InputMime
	p["filename"] = o.Filename
	p["detections"] = o.Result.Detections

	return p
}

func (p page) withError(appErr apperror.Error) page {
	p["error"] = appErr.Message

	return p
}

func (s *Server) renderPage(c echo.Context, code int, p page) error {
	return c.Render(code, indexTemplate, p)
}

// Index renders the empty upload form.
func (s *Server) Index(c echo.Context) error {
	return s.renderPage(c, http.StatusOK, newPage())
}

// DetectPage runs the uploaded file through the detector and renders both
// images, or the form with an error banner.
func (s *Server) DetectPage(c echo.Context) error {
	outcome, err := s.detect(c, nil)
	if err != nil {
		appErr := toAppError(err)
		s.report(c, appErr)

		return s.renderPage(c, appErr.HTTPCode, newPage().withError(appErr))
	}

	return s.renderPage(c, http.StatusOK, newPage().withOutcome(outcome))
}

// detect binds the request, reads the upload and calls the pipeline. The
// bound request is stored in req when it is not nil.
func (s *Server) detect(c echo.Context, req *model.DetectRequest) (*detection.Outcome, error) {
	if req == nil {
		req = &model.DetectRequest{}
	}

	if err := c.Bind(req); err != nil {
		if isBodyTooLarge(err) {
			return nil, apperror.ErrFileTooLarge(err)
		}

		return nil, apperror.ErrInvalidRequest(err)
	}

	if err := req.Validate(c.Request().Context()); err != nil {
		return nil, apperror.ErrInvalidParam(err)
	}

	file, err := app.ReadFormFile(c, fileField, s.Config.Upload.MaxSize)
	if err != nil {
		if errors.Is(err, app.ErrMissingFile) {
			return nil, detection.ErrMissingFile
		}

		if isBodyTooLarge(err) {
			return nil, apperror.ErrFileTooLarge(err)
		}

		return nil, apperror.ErrInvalidRequest(err)
	}

	if s.DetectionService == nil {
		return nil, detection.ErrEngineUnavailable
	}

	return s.DetectionService.Detect(c.Request().Context(), detection.Upload{
		Filename: file.Filename,
		Data:     file.Data,
	}, req.Options())
}

func (s *Server) RegisterPageRoutes(router *echo.Group) {
	router.GET("/", s.Index)
	router.POST("/", s.DetectPage)
}
