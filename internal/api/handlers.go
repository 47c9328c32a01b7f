package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/seird/internal/constants"
	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/network"
	"github.com/nvandessel/seird/internal/ratelimit"
	"github.com/nvandessel/seird/internal/session"
	"github.com/nvandessel/seird/internal/store"
)

// Handler serves the graph and simulation routes.
type Handler struct {
	ctrl   *session.Controller
	limits ratelimit.Limits
	logger *slog.Logger
}

// InitBody is the body of POST /api/simulation/init. Every field is
// optional.
type InitBody struct {
	Params   json.RawMessage `json:"params"`
	Topology string          `json:"topology"`
	Seed     uint64          `json:"seed"`
	Graph    *graph.Document `json:"graph"`
}

// StartBody is the body of POST /api/simulation/start. The graph may be
// sent as "graph" or "data"; the delay as "speed" or "speedMs".
type StartBody struct {
	Graph   *graph.Document `json:"graph"`
	Data    *graph.Document `json:"data"`
	Params  json.RawMessage `json:"params"`
	Speed   *int            `json:"speed"`
	SpeedMs *int            `json:"speedMs"`
}

type startResponse struct {
	Status string `json:"status"`
	session.State
}

type stepResponse struct {
	session.State
	Transitions     int     `json:"transitions"`
	AmbientPressure float64 `json:"ambientPressure"`
}

type historyResponse struct {
	RunID string            `json:"runId"`
	Days  []store.DayRecord `json:"days"`
}

// GetGraph returns the session graph, or the default graph before init.
func (h *Handler) GetGraph(c *gin.Context) {
	if st := h.ctrl.State(true); st.Graph != nil {
		c.JSON(http.StatusOK, st.Graph)
		return
	}
	h.DefaultGraph(c)
}

// DefaultGraph generates the graph for the configured seed.
func (h *Handler) DefaultGraph(c *gin.Context) {
	seed := h.ctrl.Config().Seed
	if seed == 0 {
		seed = constants.DefaultGraphSeed
	}
	h.generate(c, "", seed)
}

// RandomGraph generates a graph from a fresh seed. ?topology=modular
// selects the hub topology.
func (h *Handler) RandomGraph(c *gin.Context) {
	h.generate(c, network.Topology(c.Query("topology")), 0)
}

func (h *Handler) generate(c *gin.Context, topology network.Topology, seed uint64) {
	if err := h.limits.Check(ratelimit.CmdGenerate, c.ClientIP()); err != nil {
		RespondError(c, err)
		return
	}
	g, used, err := h.ctrl.GenerateGraph(topology, seed)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("X-Graph-Seed", strconv.FormatUint(used, 10))
	c.JSON(http.StatusOK, graph.Encode(g))
}

// UploadGraph validates an exchange document and returns it normalized.
// The session is left untouched.
func (h *Handler) UploadGraph(c *gin.Context) {
	if err := h.limits.Check(ratelimit.CmdUpload, c.ClientIP()); err != nil {
		RespondError(c, err)
		return
	}
	var doc graph.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		RespondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	g, err := graph.Decode(doc)
	if err != nil {
		h.logger.Debug("graph upload rejected", "client", c.ClientIP(), "error", err)
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph.Encode(g))
}

// Init loads a new session.
func (h *Handler) Init(c *gin.Context) {
	if err := h.limits.Check(ratelimit.CmdInit, c.ClientIP()); err != nil {
		RespondError(c, err)
		return
	}
	var body InitBody
	if !bindOptional(c, &body) {
		return
	}
	params, err := models.ParseParams(body.Params, h.ctrl.Config().Params)
	if err != nil {
		RespondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	req := session.InitRequest{
		Params:   &params,
		Topology: network.Topology(body.Topology),
		Seed:     body.Seed,
	}
	if body.Graph != nil {
		if req.Graph, err = graph.Decode(*body.Graph); err != nil {
			RespondError(c, err)
			return
		}
	}

	st, err := h.ctrl.Init(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Start launches the automatic loop.
func (h *Handler) Start(c *gin.Context) {
	if err := h.limits.Check(ratelimit.CmdStart, c.ClientIP()); err != nil {
		RespondError(c, err)
		return
	}
	var body StartBody
	if !bindOptional(c, &body) {
		return
	}

	var req session.StartRequest
	if len(body.Params) > 0 {
		base := h.ctrl.Config().Params
		if st := h.ctrl.State(false); st.Params != nil {
			base = *st.Params
		}
		params, err := models.ParseParams(body.Params, base)
		if err != nil {
			RespondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		req.Params = &params
	}

	doc := body.Graph
	if doc == nil {
		doc = body.Data
	}
	if doc != nil {
		g, err := graph.Decode(*doc)
		if err != nil {
			RespondError(c, err)
			return
		}
		req.Graph = g
	}

	req.SpeedMs = body.SpeedMs
	if req.SpeedMs == nil {
		req.SpeedMs = body.Speed
	}
	if req.SpeedMs != nil && *req.SpeedMs < 0 {
		RespondError(c, fmt.Errorf("%w: speed must be non-negative", errBadRequest))
		return
	}

	st, err := h.ctrl.Start(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, startResponse{Status: "started", State: st})
}

// Step advances one day.
func (h *Handler) Step(c *gin.Context) {
	if err := h.limits.Check(ratelimit.CmdStep, c.ClientIP()); err != nil {
		RespondError(c, err)
		return
	}
	report, err := h.ctrl.Step(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stepResponse{
		State:           h.ctrl.State(false),
		Transitions:     report.Flows.Total(),
		AmbientPressure: report.AmbientPressure,
	})
}

// Pause stops the loop after the in-flight day.
func (h *Handler) Pause(c *gin.Context) {
	if err := h.ctrl.Pause(c.Request.Context()); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.State(false))
}

// Rewind restores the initial statuses and day 0.
func (h *Handler) Rewind(c *gin.Context) {
	st, err := h.ctrl.Rewind(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Reset tears the session down.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.ctrl.Reset(c.Request.Context()); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.State(false))
}

// State reports the session. It answers 200 with ready=false before init.
// ?includeGraph=true attaches the full graph.
func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.State(c.Query("includeGraph") == "true"))
}

// History returns the day tallies of the current run.
func (h *Handler) History(c *gin.Context) {
	days, err := h.ctrl.History(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, historyResponse{RunID: h.ctrl.State(false).RunID, Days: days})
}

// bindOptional decodes a JSON body when one was sent. It writes the error
// response and returns false on malformed input.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}
