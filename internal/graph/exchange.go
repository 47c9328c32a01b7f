package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/nvandessel/seird/internal/constants"
	"github.com/nvandessel/seird/internal/models"
)

// Document is the graph exchange format shared with clients:
// {nodes: [...], links: [...]}. Ordering of nodes and links is not significant.
type Document struct {
	Nodes      []NodeDoc `json:"nodes"`
	Links      []LinkDoc `json:"links"`
	TotalNodes int       `json:"totalNodes,omitempty"`
}

// NodeDoc is one individual in exchange form.
type NodeDoc struct {
	ID            NodeRef        `json:"id"`
	Age           int            `json:"age"`
	Status        models.Status  `json:"status"`
	InitialStatus *models.Status `json:"initialStatus,omitempty"`
	DaysInfected  *int           `json:"daysInfected"`
	IsDoctor      bool           `json:"isDoctor,omitempty"`
	Hub           *int           `json:"hub,omitempty"`
}

// LinkDoc is one contact edge in exchange form. A missing weight decodes as 1.0.
type LinkDoc struct {
	Source NodeRef  `json:"source"`
	Target NodeRef  `json:"target"`
	Weight *float64 `json:"weight,omitempty"`
}

// NodeRef is an individual id. It decodes from a JSON string, a number, or
// an object carrying an "id" field (force-layout clients replace link
// endpoints with node objects).
type NodeRef string

// UnmarshalJSON implements json.Unmarshaler.
func (r *NodeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty node reference")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = NodeRef(s)
		return nil
	case '{':
		var obj struct {
			ID NodeRef `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = obj.ID
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("node reference must be a string, number or object: %w", err)
		}
		*r = NodeRef(n.String())
		return nil
	}
}

// Encode converts the graph into its exchange document.
func Encode(g *ContactGraph) Document {
	doc := Document{
		Nodes:      make([]NodeDoc, len(g.nodes)),
		Links:      make([]LinkDoc, len(g.edges)),
		TotalNodes: len(g.nodes),
	}
	for i := range g.nodes {
		ind := &g.nodes[i]
		initial := ind.InitialStatus
		nd := NodeDoc{
			ID:            NodeRef(ind.ID),
			Age:           ind.Age,
			Status:        ind.Status,
			InitialStatus: &initial,
			IsDoctor:      ind.IsDoctor,
		}
		if ind.HasDaysInfected() {
			days := ind.DaysInfected
			nd.DaysInfected = &days
		}
		if ind.Hub != NoHub {
			hub := ind.Hub
			nd.Hub = &hub
		}
		doc.Nodes[i] = nd
	}
	for i, e := range g.edges {
		w := e.Weight
		doc.Links[i] = LinkDoc{
			Source: NodeRef(g.nodes[e.A].ID),
			Target: NodeRef(g.nodes[e.B].ID),
			Weight: &w,
		}
	}
	return doc
}

// Decode validates an exchange document and builds a graph from it.
// initialStatus defaults to status; daysInfected is kept only for Exposed
// and Infected individuals (defaulting to 0) and cleared otherwise.
func Decode(doc Document) (*ContactGraph, error) {
	g := New(len(doc.Nodes))
	for i, nd := range doc.Nodes {
		if nd.Age < constants.MinAge || nd.Age > constants.MaxAge {
			return nil, fmt.Errorf("%w: node %d (%q) age %d outside [%d,%d]",
				ErrInvalidGraph, i, nd.ID, nd.Age, constants.MinAge, constants.MaxAge)
		}
		ind := Individual{
			ID:            string(nd.ID),
			Age:           nd.Age,
			Status:        nd.Status,
			InitialStatus: nd.Status,
			DaysInfected:  DaysUnset,
			IsDoctor:      nd.IsDoctor,
			Hub:           NoHub,
		}
		if nd.InitialStatus != nil {
			ind.InitialStatus = *nd.InitialStatus
		}
		if ind.Status == models.Infected || ind.Status == models.Exposed {
			ind.DaysInfected = 0
			if nd.DaysInfected != nil && *nd.DaysInfected >= 0 {
				ind.DaysInfected = *nd.DaysInfected
			}
		}
		if nd.Hub != nil {
			ind.Hub = *nd.Hub
		}
		if _, err := g.AddIndividual(ind); err != nil {
			return nil, err
		}
	}
	for i, ld := range doc.Links {
		a, ok := g.IndexOf(string(ld.Source))
		if !ok {
			return nil, fmt.Errorf("%w: link %d source %q does not exist", ErrInvalidGraph, i, ld.Source)
		}
		b, ok := g.IndexOf(string(ld.Target))
		if !ok {
			return nil, fmt.Errorf("%w: link %d target %q does not exist", ErrInvalidGraph, i, ld.Target)
		}
		w := 1.0
		if ld.Weight != nil {
			w = *ld.Weight
		}
		if err := g.AddEdge(a, b, w); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ReadJSON decodes an exchange document from r and builds the graph.
func ReadJSON(r io.Reader) (*ContactGraph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding graph document: %w", err)
	}
	return Decode(doc)
}

// WriteJSON writes the exchange document for g to w, indented.
func WriteJSON(w io.Writer, g *ContactGraph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(g)); err != nil {
		return fmt.Errorf("encoding graph document: %w", err)
	}
	return nil
}

// IndexID is the id assigned to generated individuals: the decimal arena index.
func IndexID(i int) string {
	return strconv.Itoa(i)
}
