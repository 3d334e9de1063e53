// Package bgp flattens learned BGP protocol state into neighbor summaries.
//
// Learned state is a nested mapping keyed instance -> "vrf" -> VRF ->
// "neighbor" -> address -> attributes. The extractor walks it and produces
// one NeighborRow per neighbor leaf.
package bgp

import "strings"

// Well-known keys in a learned BGP state tree.
const (
	KeyVRF      = "vrf"
	KeyNeighbor = "neighbor"

	// AttrSessionState is the session state attribute on a neighbor leaf.
	AttrSessionState = "session_state"
	// attrSessionStateAlt is accepted when AttrSessionState is absent.
	attrSessionStateAlt = "sessionState"
)

// DefaultStateFilter is the session state counted when no filter is given.
const DefaultStateFilter = "established"

// UnknownState marks a neighbor whose session state was not reported.
const UnknownState = ""

// BGPState is learned BGP state, keyed by instance name at the top level.
// Nested levels are map[string]any, BGPState, or map[any]any as decoded
// from YAML. A nil level is treated as empty.
type BGPState map[string]any

// AddNeighbor inserts a neighbor leaf, creating the intermediate instance
// and VRF levels as needed. attrs is stored as-is.
func (s BGPState) AddNeighbor(instance, vrf, addr string, attrs map[string]any) {
	inst, ok := s[instance].(map[string]any)
	if !ok {
		inst = map[string]any{}
		s[instance] = inst
	}
	vrfs, ok := inst[KeyVRF].(map[string]any)
	if !ok {
		vrfs = map[string]any{}
		inst[KeyVRF] = vrfs
	}
	v, ok := vrfs[vrf].(map[string]any)
	if !ok {
		v = map[string]any{}
		vrfs[vrf] = v
	}
	nbrs, ok := v[KeyNeighbor].(map[string]any)
	if !ok {
		nbrs = map[string]any{}
		v[KeyNeighbor] = nbrs
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	nbrs[addr] = attrs
}

// NeighborRow is one flattened neighbor entry.
type NeighborRow struct {
	Instance     string `json:"instance"`
	VRF          string `json:"vrf"`
	Neighbor     string `json:"neighbor"`
	SessionState string `json:"session_state"`
}

// NeighborSummary is the result of ExtractNeighbors.
type NeighborSummary struct {
	Rows          []NeighborRow `json:"rows"`
	StateFilter   string        `json:"state_filter"`
	FilteredCount int           `json:"filtered_count"`
}

// Len returns the number of rows.
func (s *NeighborSummary) Len() int {
	return len(s.Rows)
}

// Matching returns the rows counted by the state filter.
func (s *NeighborSummary) Matching() []NeighborRow {
	var out []NeighborRow
	for _, r := range s.Rows {
		if stateMatches(r.SessionState, s.StateFilter) {
			out = append(out, r)
		}
	}
	return out
}

// StateCounts returns the number of rows per lower-cased session state.
// Rows with no reported state are counted under "unknown".
func (s *NeighborSummary) StateCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Rows {
		key := strings.ToLower(r.SessionState)
		if key == UnknownState {
			key = "unknown"
		}
		counts[key]++
	}
	return counts
}

func stateMatches(state, filter string) bool {
	return strings.EqualFold(state, filter)
}
