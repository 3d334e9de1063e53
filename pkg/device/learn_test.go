package device

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/bgpsum/pkg/bgp"
	"github.com/newtron-network/bgpsum/pkg/testbed"
	"github.com/newtron-network/bgpsum/pkg/util"
)

func TestBuildBGPState(t *testing.T) {
	globals := map[string]map[string]string{
		"default": {"local_asn": "65001", "router_id": "10.0.0.1"},
		"Vrf_red": {"local_asn": "65001"},
	}
	neighbors := map[string]map[string]string{
		"10.1.0.1": {
			"state":             "Established",
			"remote_asn":        "65100",
			"prefixes_received": "12",
		},
		"10.1.0.3":         {"state": "Active", "remote_asn": "65101"},
		"Vrf_red|10.2.0.1": {"state": "Established", "remote_asn": "65200"},
		"Vrf_red|fc00::1":  {"remote_asn": "65201"},
	}

	state := buildBGPState(globals, neighbors)

	want := bgp.BGPState{
		"65001": map[string]any{
			"vrf": map[string]any{
				"default": map[string]any{
					"neighbor": map[string]any{
						"10.1.0.1": map[string]any{
							"session_state":     "Established",
							"remote_as":         "65100",
							"prefixes_received": "12",
						},
						"10.1.0.3": map[string]any{
							"session_state": "Active",
							"remote_as":     "65101",
						},
					},
				},
				"Vrf_red": map[string]any{
					"neighbor": map[string]any{
						"10.2.0.1": map[string]any{
							"session_state": "Established",
							"remote_as":     "65200",
						},
						"fc00::1": map[string]any{
							"remote_as": "65201",
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	summary, err := bgp.ExtractNeighbors(state, "")
	if err != nil {
		t.Fatalf("ExtractNeighbors: %v", err)
	}
	if summary.Len() != 4 {
		t.Errorf("Len() = %d, want 4", summary.Len())
	}
	if summary.FilteredCount != 2 {
		t.Errorf("FilteredCount = %d, want 2", summary.FilteredCount)
	}
}

func TestBuildBGPState_NoGlobals(t *testing.T) {
	state := buildBGPState(nil, map[string]map[string]string{
		"10.0.0.2": {"state": "Idle"},
	})
	if _, ok := state["default"]; !ok {
		t.Fatalf("instance = %v, want \"default\"", state)
	}
}

func TestBuildBGPState_Empty(t *testing.T) {
	state := buildBGPState(map[string]map[string]string{"default": {"local_asn": "65001"}}, nil)
	if len(state) != 0 {
		t.Errorf("state = %v, want empty", state)
	}
}

func TestParseSonicVersion(t *testing.T) {
	data := []byte(`
build_version: 'SONiC.202311.01-abcdef'
debian_version: '12.5'
kernel_version: 6.1.0-11-2-amd64
asic_type: vs
`)
	v, err := parseSonicVersion(data)
	if err != nil {
		t.Fatalf("parseSonicVersion: %v", err)
	}
	if v != "SONiC.202311.01-abcdef" {
		t.Errorf("version = %q", v)
	}

	if _, err := parseSonicVersion([]byte("build_version: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLearn_NotConnected(t *testing.T) {
	d := NewDevice(&testbed.Device{Name: "leaf1"})
	if d.IsConnected() {
		t.Fatal("new device should not be connected")
	}

	if _, err := d.LearnBGP(context.Background()); !errors.Is(err, util.ErrNotConnected) {
		t.Errorf("LearnBGP err = %v, want ErrNotConnected", err)
	}
	if _, err := d.LearnPlatform(context.Background()); !errors.Is(err, util.ErrNotConnected) {
		t.Errorf("LearnPlatform err = %v, want ErrNotConnected", err)
	}
	if err := d.Disconnect(); err != nil {
		t.Errorf("Disconnect on unconnected device: %v", err)
	}
}

func TestDisconnect_ReturnsCloseError(t *testing.T) {
	d := NewDevice(&testbed.Device{Name: "leaf1"})
	d.configDB = newDBClient("config_db", "127.0.0.1:1", ConfigDBIndex)
	d.stateDB = newDBClient("state_db", "127.0.0.1:1", StateDBIndex)
	d.connected = true

	// A client closed twice reports an error; the device still ends up disconnected.
	d.configDB.close()

	if err := d.Disconnect(); err == nil {
		t.Error("Disconnect() should return the close error")
	}
	if d.IsConnected() {
		t.Error("device still connected after Disconnect")
	}
	if d.configDB != nil || d.stateDB != nil {
		t.Error("clients not released")
	}
}
