package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"resortops/internal/app/apperr"
	"resortops/internal/app/uow"
)

const genericServerError = "something went wrong, please try again later"

// Responder writes the response envelope shared by every endpoint.
type Responder struct {
	// Production hides 5xx messages; Debug exposes the wrapped cause chain.
	Production bool
	Debug      bool
	Logger     *slog.Logger
}

type envelope struct {
	OK        bool              `json:"ok"`
	Status    string            `json:"status"`
	Data      any               `json:"data,omitempty"`
	Message   string            `json:"message,omitempty"`
	Conflicts []apperr.Conflict `json:"conflicts,omitempty"`
	Detail    string            `json:"detail,omitempty"`
}

func (r Responder) Success(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{OK: true, Status: "success", Data: data})
}

// Fail maps err to an HTTP status by its kind.
func (r Responder) Fail(c *gin.Context, err error) {
	status := StatusFor(err)
	body := envelope{OK: false, Status: "fail", Message: err.Error()}
	if status >= http.StatusInternalServerError {
		body.Status = "error"
		if r.Logger != nil {
			r.Logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
		}
		if r.Production {
			body.Message = genericServerError
		}
	}
	if e, ok := apperr.As(err); ok {
		body.Conflicts = e.Conflicts
		if r.Debug {
			body.Detail = e.Detail()
		}
	} else if r.Debug {
		body.Detail = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest rejects a request that could not be bound.
func (r Responder) BadRequest(c *gin.Context, err error) {
	r.Fail(c, apperr.Validation(err, "invalid request body: %v", err))
}

// StatusFor is the kind-to-status mapping of the HTTP surface.
func StatusFor(err error) int {
	if errors.Is(err, uow.ErrConcurrentUpdate) {
		return http.StatusConflict
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPolicy:
		return http.StatusNotAcceptable
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
