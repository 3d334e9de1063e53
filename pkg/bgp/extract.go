package bgp

import (
	"fmt"
	"sort"
)

// ExtractNeighbors flattens state into one row per neighbor and counts the
// rows whose session state equals stateFilter, ignoring case. An empty
// stateFilter means DefaultStateFilter.
//
// Keys are visited in ascending order at every level, so the row order is
// stable for a given input. A missing "vrf" or "neighbor" level is empty.
// A neighbor without a session state gets UnknownState. Any value that is
// not a mapping where one is expected fails the whole call with a
// *StructuralError.
func ExtractNeighbors(state BGPState, stateFilter string) (*NeighborSummary, error) {
	if stateFilter == "" {
		stateFilter = DefaultStateFilter
	}
	summary := &NeighborSummary{
		Rows:        []NeighborRow{},
		StateFilter: stateFilter,
	}

	err := walk(state, func(instance, vrf, addr string, attrs map[string]any, path []string) error {
		sessionState, err := sessionStateOf(attrs, path)
		if err != nil {
			return err
		}
		summary.Rows = append(summary.Rows, NeighborRow{
			Instance:     instance,
			VRF:          vrf,
			Neighbor:     addr,
			SessionState: sessionState,
		})
		if stateMatches(sessionState, stateFilter) {
			summary.FilteredCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// CountNeighbors returns the number of neighbor leaves in state.
func CountNeighbors(state BGPState) (int, error) {
	n := 0
	err := walk(state, func(_, _, _ string, _ map[string]any, _ []string) error {
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

type leafFunc func(instance, vrf, addr string, attrs map[string]any, path []string) error

// walk visits every neighbor leaf in key order.
func walk(state BGPState, fn leafFunc) error {
	path := make([]string, 0, 5)

	for _, instance := range sortedKeys(state) {
		path = append(path[:0], instance)
		inst, err := mapping(state[instance], path)
		if err != nil {
			return err
		}

		path = append(path, KeyVRF)
		vrfs, err := mapping(inst[KeyVRF], path)
		if err != nil {
			return err
		}
		for _, vrf := range sortedKeys(vrfs) {
			path = append(path[:2], vrf)
			v, err := mapping(vrfs[vrf], path)
			if err != nil {
				return err
			}

			path = append(path, KeyNeighbor)
			nbrs, err := mapping(v[KeyNeighbor], path)
			if err != nil {
				return err
			}
			for _, addr := range sortedKeys(nbrs) {
				path = append(path[:4], addr)
				attrs, err := mapping(nbrs[addr], path)
				if err != nil {
					return err
				}
				if err := fn(instance, vrf, addr, attrs, path); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sessionStateOf(attrs map[string]any, path []string) (string, error) {
	key := AttrSessionState
	raw, ok := attrs[key]
	if !ok {
		key = attrSessionStateAlt
		raw, ok = attrs[key]
	}
	if !ok || raw == nil {
		return UnknownState, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", newStructuralError(append(path, key), "string", raw)
	}
	return s, nil
}

// mapping normalizes v to map[string]any. nil is an empty mapping.
func mapping(v any, path []string) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	case BGPState:
		return m, nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, nil
	default:
		return nil, newStructuralError(path, "mapping", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
