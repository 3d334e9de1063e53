package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/bgpsum/pkg/bgp"
	"github.com/newtron-network/bgpsum/pkg/device"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Summarize BGP state saved in a JSON or YAML file",
	Long: `Read learned BGP state from a file and print the same summary as show,
without connecting to a device. The format follows the file extension:
.json is JSON, anything else is YAML.

Examples:
  bgpsum extract leaf1-bgp.yaml
  bgpsum -f idle extract leaf1-bgp.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		state, err := loadState(path)
		if err != nil {
			return err
		}
		summary, err := bgp.ExtractNeighbors(state, stateFilter)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		platform := &device.Platform{Hostname: filepath.Base(path)}
		if extractJSON {
			return renderJSON(os.Stdout, platform.Hostname, nil, summary)
		}
		renderSummary(os.Stdout, platform, summary)
		return nil
	},
}

// loadState decodes a learned BGP state file.
func loadState(path string) (bgp.BGPState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	state, err := decodeState(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return state, nil
}

func decodeState(data []byte, isJSON bool) (bgp.BGPState, error) {
	state := bgp.BGPState{}
	var err error
	if isJSON {
		err = json.Unmarshal(data, &state)
	} else {
		err = yaml.Unmarshal(data, &state)
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "JSON output")
}
