package bgp

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func twoNeighborState() BGPState {
	return BGPState{
		"100": map[string]any{
			"vrf": map[string]any{
				"default": map[string]any{
					"neighbor": map[string]any{
						"10.0.0.1": map[string]any{"sessionState": "established"},
						"10.0.0.2": map[string]any{"sessionState": "idle"},
					},
				},
			},
		},
	}
}

func TestExtractNeighbors_TwoNeighbors(t *testing.T) {
	summary, err := ExtractNeighbors(twoNeighborState(), "")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}

	want := []NeighborRow{
		{Instance: "100", VRF: "default", Neighbor: "10.0.0.1", SessionState: "established"},
		{Instance: "100", VRF: "default", Neighbor: "10.0.0.2", SessionState: "idle"},
	}
	if diff := cmp.Diff(want, summary.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if summary.FilteredCount != 1 {
		t.Errorf("FilteredCount = %d, want 1", summary.FilteredCount)
	}
	if summary.StateFilter != DefaultStateFilter {
		t.Errorf("StateFilter = %q, want %q", summary.StateFilter, DefaultStateFilter)
	}
}

func TestExtractNeighbors_Empty(t *testing.T) {
	for name, state := range map[string]BGPState{
		"nil":          nil,
		"no instances": {},
		"no vrfs":      {"65000": map[string]any{}},
		"no neighbors": {"65000": map[string]any{"vrf": map[string]any{"default": map[string]any{}}}},
		"null levels":  {"65000": map[string]any{"vrf": map[string]any{"default": map[string]any{"neighbor": nil}}}},
	} {
		t.Run(name, func(t *testing.T) {
			summary, err := ExtractNeighbors(state, "established")
			if err != nil {
				t.Fatalf("ExtractNeighbors: %v", err)
			}
			if summary.Rows == nil {
				t.Error("Rows is nil, want empty slice")
			}
			if summary.Len() != 0 {
				t.Errorf("Len() = %d, want 0", summary.Len())
			}
			if summary.FilteredCount != 0 {
				t.Errorf("FilteredCount = %d, want 0", summary.FilteredCount)
			}
		})
	}
}

func TestExtractNeighbors_CaseInsensitive(t *testing.T) {
	state := BGPState{}
	state.AddNeighbor("65001", "default", "10.1.0.1", map[string]any{AttrSessionState: "Established"})
	state.AddNeighbor("65001", "default", "10.1.0.2", map[string]any{AttrSessionState: "ESTABLISHED"})
	state.AddNeighbor("65001", "default", "10.1.0.3", map[string]any{AttrSessionState: "Active"})

	summary, err := ExtractNeighbors(state, "established")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	if summary.FilteredCount != 2 {
		t.Errorf("FilteredCount = %d, want 2", summary.FilteredCount)
	}

	summary, err = ExtractNeighbors(state, "ACTIVE")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	if summary.FilteredCount != 1 {
		t.Errorf("FilteredCount(ACTIVE) = %d, want 1", summary.FilteredCount)
	}
	if got := summary.Matching(); len(got) != 1 || got[0].Neighbor != "10.1.0.3" {
		t.Errorf("Matching() = %v, want 10.1.0.3 only", got)
	}
}

func TestExtractNeighbors_MissingSessionState(t *testing.T) {
	state := BGPState{}
	state.AddNeighbor("65001", "default", "10.1.0.1", map[string]any{"remote_as": "65002"})
	state.AddNeighbor("65001", "default", "10.1.0.2", nil)
	state.AddNeighbor("65001", "default", "10.1.0.3", map[string]any{AttrSessionState: nil})

	summary, err := ExtractNeighbors(state, "")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	if summary.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", summary.Len())
	}
	for _, r := range summary.Rows {
		if r.SessionState != UnknownState {
			t.Errorf("%s: SessionState = %q, want unknown marker", r.Neighbor, r.SessionState)
		}
	}
	if summary.FilteredCount != 0 {
		t.Errorf("FilteredCount = %d, want 0", summary.FilteredCount)
	}
	if got := summary.StateCounts()["unknown"]; got != 3 {
		t.Errorf(`StateCounts()["unknown"] = %d, want 3`, got)
	}
}

func TestExtractNeighbors_PrefersSnakeCaseAttribute(t *testing.T) {
	state := BGPState{}
	state.AddNeighbor("1", "default", "10.0.0.1", map[string]any{
		AttrSessionState: "idle",
		"sessionState":   "established",
	})
	summary, err := ExtractNeighbors(state, "")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	if summary.Rows[0].SessionState != "idle" {
		t.Errorf("SessionState = %q, want %q", summary.Rows[0].SessionState, "idle")
	}
}

func TestExtractNeighbors_Ordering(t *testing.T) {
	state := BGPState{}
	state.AddNeighbor("65002", "Vrf_red", "10.2.0.2", map[string]any{AttrSessionState: "established"})
	state.AddNeighbor("65001", "default", "10.1.0.9", map[string]any{AttrSessionState: "established"})
	state.AddNeighbor("65002", "Vrf_blue", "10.3.0.1", map[string]any{AttrSessionState: "idle"})
	state.AddNeighbor("65002", "Vrf_red", "10.2.0.1", map[string]any{AttrSessionState: "connect"})

	first, err := ExtractNeighbors(state, "")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	want := []NeighborRow{
		{"65001", "default", "10.1.0.9", "established"},
		{"65002", "Vrf_blue", "10.3.0.1", "idle"},
		{"65002", "Vrf_red", "10.2.0.1", "connect"},
		{"65002", "Vrf_red", "10.2.0.2", "established"},
	}
	if diff := cmp.Diff(want, first.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 10; i++ {
		again, err := ExtractNeighbors(state, "")
		if err != nil {
			t.Fatalf("ExtractNeighbors: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestExtractNeighbors_Completeness(t *testing.T) {
	state := BGPState{}
	leaves := 0
	for _, inst := range []string{"1", "2", "3"} {
		for _, vrf := range []string{"default", "Vrf1"} {
			for _, addr := range []string{"10.0.0.1", "10.0.0.2", "fc00::1"} {
				st := "idle"
				if addr == "10.0.0.1" {
					st = "established"
				}
				state.AddNeighbor(inst, vrf, addr, map[string]any{AttrSessionState: st})
				leaves++
			}
		}
	}

	summary, err := ExtractNeighbors(state, "")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	if summary.Len() != leaves {
		t.Errorf("Len() = %d, want %d", summary.Len(), leaves)
	}
	if summary.FilteredCount > summary.Len() {
		t.Errorf("FilteredCount %d > Len() %d", summary.FilteredCount, summary.Len())
	}
	if summary.FilteredCount != 6 {
		t.Errorf("FilteredCount = %d, want 6", summary.FilteredCount)
	}

	n, err := CountNeighbors(state)
	if err != nil {
		t.Fatalf("CountNeighbors: %v", err)
	}
	if n != leaves {
		t.Errorf("CountNeighbors = %d, want %d", n, leaves)
	}
}

func TestExtractNeighbors_DoesNotMutateInput(t *testing.T) {
	state := twoNeighborState()
	before := twoNeighborState()
	if _, err := ExtractNeighbors(state, ""); err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	if diff := cmp.Diff(before, state); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestExtractNeighbors_StructuralErrors(t *testing.T) {
	tests := []struct {
		name     string
		state    BGPState
		wantPath []string
		wantWant string
	}{
		{
			name:     "instance not a mapping",
			state:    BGPState{"100": "oops"},
			wantPath: []string{"100"},
			wantWant: "mapping",
		},
		{
			name:     "vrf level is a list",
			state:    BGPState{"100": map[string]any{"vrf": []any{"default"}}},
			wantPath: []string{"100", "vrf"},
			wantWant: "mapping",
		},
		{
			name: "neighbor leaf is a string",
			state: BGPState{"100": map[string]any{"vrf": map[string]any{
				"default": map[string]any{"neighbor": map[string]any{"10.0.0.1": "established"}},
			}}},
			wantPath: []string{"100", "vrf", "default", "neighbor", "10.0.0.1"},
			wantWant: "mapping",
		},
		{
			name: "session state not a string",
			state: BGPState{"100": map[string]any{"vrf": map[string]any{
				"default": map[string]any{"neighbor": map[string]any{
					"10.0.0.1": map[string]any{"session_state": 6},
				}},
			}}},
			wantPath: []string{"100", "vrf", "default", "neighbor", "10.0.0.1", "session_state"},
			wantWant: "string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := ExtractNeighbors(tt.state, "")
			if err == nil {
				t.Fatalf("expected error, got summary %+v", summary)
			}
			if !errors.Is(err, ErrStructure) {
				t.Errorf("errors.Is(err, ErrStructure) = false for %v", err)
			}
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not *StructuralError", err)
			}
			if diff := cmp.Diff(tt.wantPath, se.Path); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
			if se.Want != tt.wantWant {
				t.Errorf("Want = %q, want %q", se.Want, tt.wantWant)
			}
			if summary != nil {
				t.Errorf("summary = %+v, want nil on error", summary)
			}
		})
	}
}

func TestExtractNeighbors_FromYAML(t *testing.T) {
	// The VRF level mixes an integer key with a string key, so yaml.v3
	// decodes it as map[any]any.
	doc := `
65001:
  vrf:
    10:
      neighbor:
        10.0.10.1:
          session_state: idle
    default:
      neighbor:
        10.0.0.1:
          session_state: Established
        10.0.0.2:
          session_state: active
`
	var state BGPState
	if err := yaml.Unmarshal([]byte(doc), &state); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	summary, err := ExtractNeighbors(state, "")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	want := []NeighborRow{
		{"65001", "10", "10.0.10.1", "idle"},
		{"65001", "default", "10.0.0.1", "Established"},
		{"65001", "default", "10.0.0.2", "active"},
	}
	if diff := cmp.Diff(want, summary.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if summary.FilteredCount != 1 {
		t.Errorf("FilteredCount = %d, want 1", summary.FilteredCount)
	}
}

func TestStructuralError_Message(t *testing.T) {
	err := &StructuralError{Path: []string{"100", "vrf"}, Want: "mapping", Got: 3}
	want := "malformed BGP state at 100/vrf: want mapping, got int"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	root := &StructuralError{Want: "mapping", Got: "x"}
	if got := root.Error(); got != "malformed BGP state at <root>: want mapping, got string" {
		t.Errorf("Error() = %q", got)
	}
}
