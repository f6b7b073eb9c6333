package httpserver

import (
	"github.com/SeaCloudHub/objdetect/adapters/httpserver/model"
	"github.com/labstack/echo/v4"
)

// Detect is the JSON variant of the page: same pipeline, same form fields.
func (s *Server) Detect(c echo.Context) error {
	var req model.DetectRequest

	outcome, err := s.detect(c, &req)
	if err != nil {
		return s.error(c, err)
	}

	return s.success(c, model.NewDetectResponse(outcome, req.Embed))
}

func (s *Server) RegisterAPIRoutes(router *echo.Group) {
	router.POST("/detect", s.Detect)
}
