// Package relation aggregates cross-module entity relationships.
//
// Each module contributes a Lookup that answers "which of my entities
// relate to this anchor". The Aggregator fans a query out to every
// registered lookup and assembles a Graph, degrading gracefully when a
// single module cannot answer.
package relation

import "fmt"

// Anchor identifies the entity a relationship query starts from.
type Anchor string

// Supported anchors.
const (
	AnchorUser    Anchor = "user"
	AnchorProject Anchor = "project"
	AnchorLead    Anchor = "lead"
)

// Valid reports whether the anchor is one of the supported kinds.
func (a Anchor) Valid() bool {
	switch a {
	case AnchorUser, AnchorProject, AnchorLead:
		return true
	}
	return false
}

// Relationship kinds contributed by the platform modules.
const (
	KindProjects          = "projects"
	KindLeads             = "leads"
	KindEmailCampaigns    = "email_campaigns"
	KindPosts             = "posts"
	KindUniverseInstances = "universe_instances"
	KindWorkflows         = "workflows"
	KindAuraChats         = "aura_chats"
	KindAnalytics         = "analytics"
)

// EntityRef is a lightweight reference to an entity in another module.
type EntityRef struct {
	ID         int64          `json:"id"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Graph is the result of one aggregation: every registered kind mapped
// to its related entities. Kinds whose lookup failed are still present
// with an empty list and are named in Degraded.
type Graph struct {
	Anchor   Anchor                 `json:"anchor"`
	AnchorID int64                  `json:"anchor_id"`
	Related  map[string][]EntityRef `json:"related"`
	Degraded []string               `json:"degraded,omitempty"`
}

// TotalsByKind counts related entities per kind, in the shape the
// stats surface reports.
func (g Graph) TotalsByKind() map[string]int {
	totals := make(map[string]int, len(g.Related))
	for kind, refs := range g.Related {
		totals[kind] = len(refs)
	}
	return totals
}

// ErrUnknownAnchor is returned for anchors outside the supported set.
type ErrUnknownAnchor struct {
	Anchor Anchor
}

func (e *ErrUnknownAnchor) Error() string {
	return fmt.Sprintf("unknown relationship anchor %q", e.Anchor)
}
