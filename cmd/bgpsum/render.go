package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/newtron-network/bgpsum/pkg/bgp"
	"github.com/newtron-network/bgpsum/pkg/cli"
	"github.com/newtron-network/bgpsum/pkg/device"
)

// ruleWidth is the width of the rule framing each device summary.
const ruleWidth = 80

// renderSummary writes the human-readable neighbor summary for one device.
func renderSummary(w io.Writer, p *device.Platform, s *bgp.NeighborSummary) {
	fmt.Fprintf(w, "\n%s\n", cli.Rule(ruleWidth))
	fmt.Fprintf(w, "Hostname: %s\n", p.Hostname)
	fmt.Fprintf(w, "Software Version: %s\n\n", cli.Dash(strings.TrimSpace(p.OS+" "+p.Version)))

	t := cli.NewTableTo(w, "BGP INSTANCE", "VRF", "NEIGHBOR", "STATE").ShowEmpty()
	for _, r := range s.Rows {
		t.Row(r.Instance, r.VRF, r.Neighbor, cli.SessionState(r.SessionState))
	}
	t.Flush()

	fmt.Fprintf(w, "\nTotal # of %s Neighbors: %d\n", filterTitle(s.StateFilter), s.FilteredCount)
	fmt.Fprintf(w, "%s\n\n", cli.Rule(ruleWidth))
}

// summaryJSON is the --json document for one device.
type summaryJSON struct {
	Device   string               `json:"device"`
	Platform *device.Platform     `json:"platform,omitempty"`
	Summary  *bgp.NeighborSummary `json:"summary"`
	States   map[string]int       `json:"states"`
}

func renderJSON(w io.Writer, name string, p *device.Platform, s *bgp.NeighborSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaryJSON{Device: name, Platform: p, Summary: s, States: s.StateCounts()})
}

// filterTitle capitalizes the first letter of a state name for headings.
func filterTitle(state string) string {
	r, size := utf8.DecodeRuneInString(state)
	if r == utf8.RuneError {
		return state
	}
	return string(unicode.ToUpper(r)) + state[size:]
}
