package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mortality/internal/engine"
	"mortality/internal/models"
)

var errLoading = echo.NewHTTPError(http.StatusServiceUnavailable, "data is still loading")

// statusFor maps an error to its HTTP status and response body.
func statusFor(err error) (int, models.ErrorResponse) {
	resp := models.ErrorResponse{Error: err.Error()}

	var se *engine.SelectionError
	var ie *engine.IntegrityError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &se):
		resp.Field, resp.Value = se.Field, se.Value
		if errors.Is(err, engine.ErrEmptySelection) {
			return http.StatusNotFound, resp
		}
		return http.StatusBadRequest, resp
	case errors.As(err, &ie):
		resp.Field, resp.Value = ie.Field, ie.Value
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, engine.ErrEmptySelection):
		return http.StatusNotFound, resp
	case errors.Is(err, engine.ErrInvalidSelection):
		return http.StatusBadRequest, resp
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			resp.Error = msg
		} else {
			resp.Error = http.StatusText(he.Code)
		}
		return he.Code, resp
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
}

// ErrorHandler renders every handler error as a JSON ErrorResponse.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, resp := statusFor(err)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
