package session

import (
	"github.com/nvandessel/seird/internal/epidemic"
	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

// State is the observable session state returned by every boundary.
type State struct {
	// Ready is false until a graph has been loaded.
	Ready        bool            `json:"ready"`
	RunID        string          `json:"runId,omitempty"`
	CurrentDay   int             `json:"currentDay"`
	Running      bool            `json:"running"`
	IsFinished   bool            `json:"isFinished"`
	Population   int             `json:"population"`
	StatusCounts map[string]int  `json:"statusCounts"`
	Params       *models.Params  `json:"params,omitempty"`
	SpeedMs      int             `json:"speedMs"`
	LastError    string          `json:"lastError,omitempty"`
	Graph        *graph.Document `json:"graph,omitempty"`
}

// State returns a consistent view of the session. Day, counts and graph are
// read under the graph lock so they always describe the same completed day.
func (c *Controller) State(includeGraph bool) State {
	c.mu.Lock()
	sim := c.sim
	st := State{
		Ready:   sim != nil,
		RunID:   c.runID,
		Running: c.running,
		SpeedMs: c.speedMs,
	}
	if c.lastError != nil {
		st.LastError = c.lastError.Error()
	}
	c.mu.Unlock()

	if sim == nil {
		st.StatusCounts = models.StatusCounts{}.Map()
		return st
	}

	c.graphMu.RLock()
	defer c.graphMu.RUnlock()

	counts := sim.Counts()
	params := sim.Params()
	st.CurrentDay = sim.Day()
	st.IsFinished = epidemic.Finished(counts, sim.StopOnExposed())
	st.Population = counts.Total()
	st.StatusCounts = counts.Map()
	st.Params = &params
	if includeGraph {
		doc := graph.Encode(sim.Graph())
		st.Graph = &doc
	}
	return st
}
