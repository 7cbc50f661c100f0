package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apimorph/internal/format"
	"github.com/vyrodovalexey/apimorph/internal/response"
)

// ContentTypeProblem is the RFC 9457 problem details content type.
const ContentTypeProblem = "application/problem+json"

// Problem is an RFC 9457 problem details document.
type Problem struct {
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Status    int      `json:"status"`
	Detail    string   `json:"detail,omitempty"`
	Instance  string   `json:"instance,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	Available []string `json:"available_formats,omitempty"`
}

func newProblem(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// problemFor maps a handler or morph error to a problem document. Errors
// carrying a StatusCode keep it; anything else is a 500 without details.
func problemFor(err error, rt *Runtime) *Problem {
	status := response.StatusCode(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}

	p := newProblem(status, "")

	var unsupported *format.UnsupportedFormatError
	switch {
	case errors.As(err, &unsupported):
		p.Detail = err.Error()
		if rt != nil {
			p.Available = rt.Catalog.IDs()
		}
	case status < http.StatusInternalServerError:
		p.Detail = err.Error()
	}

	return p
}

// writeProblem renders p as application/problem+json.
func writeProblem(c *gin.Context, p *Problem) {
	if p.Instance == "" {
		p.Instance = c.Request.URL.Path
	}
	if p.RequestID == "" {
		p.RequestID = GetRequestID(c)
	}

	data, err := json.Marshal(p)
	if err != nil {
		c.Status(p.Status)
		return
	}
	c.Data(p.Status, ContentTypeProblem, data)
}

// HTTPError is an error with an HTTP status, returned by handlers to
// produce a problem response.
type HTTPError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status of the error.
func (e *HTTPError) StatusCode() int { return e.Status }

// NewHTTPError creates an HTTPError.
func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}
