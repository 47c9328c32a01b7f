package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/ratelimit"
	"github.com/nvandessel/seird/internal/session"
)

// errBadRequest marks malformed request bodies and query parameters.
var errBadRequest = errors.New("bad request")

// APIError is the error body of non-conflict failures.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// conflictBody is returned with 409 responses.
type conflictBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RespondError maps err onto a status code and body.
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, conflictBody{Status: "already_running", Error: err.Error()})
	case errors.Is(err, session.ErrRunning):
		c.JSON(http.StatusConflict, conflictBody{Status: "running", Error: err.Error()})
	case errors.Is(err, session.ErrFinished):
		c.JSON(http.StatusConflict, conflictBody{Status: "finished", Error: err.Error()})
	case errors.Is(err, session.ErrUninitialized):
		respond(c, http.StatusBadRequest, "not_initialized", err)
	case errors.Is(err, ratelimit.ErrRateLimited):
		respond(c, http.StatusTooManyRequests, "rate_limited", err)
	case errors.Is(err, graph.ErrInvalidGraph):
		respond(c, http.StatusBadRequest, "invalid_graph", err)
	case errors.Is(err, network.ErrInvalidTopology):
		respond(c, http.StatusBadRequest, "invalid_topology", err)
	case errors.Is(err, errBadRequest):
		respond(c, http.StatusBadRequest, "invalid_request", err)
	default:
		respond(c, http.StatusInternalServerError, "internal", err)
	}
}

func respond(c *gin.Context, status int, code string, err error) {
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: err.Error(), Code: code}})
}
