package device

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/bgpsum/pkg/bgp"
	"github.com/newtron-network/bgpsum/pkg/util"
)

// DefaultVRF is SONiC's name for the global routing table.
const DefaultVRF = "default"

// sonicVersionFile holds the image version on a SONiC device.
const sonicVersionFile = "/etc/sonic/sonic_version.yml"

// Platform describes the device's software and hardware.
type Platform struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Version  string `json:"version"`
	HwSKU    string `json:"hwsku,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// LearnBGP reads BGP globals and neighbor sessions and returns them as a
// bgp.BGPState keyed by local ASN.
func (d *Device) LearnBGP(ctx context.Context) (bgp.BGPState, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.requireConnected(); err != nil {
		return nil, err
	}

	globals, err := d.configDB.table(ctx, tableBGPGlobals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}
	neighbors, err := d.stateDB.table(ctx, tableBGPNeighbor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	state := buildBGPState(globals, neighbors)
	util.WithDevice(d.Name).Debugf("learned %d BGP neighbor entries", len(neighbors))
	return state, nil
}

// LearnPlatform reads device metadata and, over SSH, the image version.
// Version is "unknown" when the device is reached without SSH.
func (d *Device) LearnPlatform(ctx context.Context) (*Platform, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.requireConnected(); err != nil {
		return nil, err
	}

	meta, err := d.configDB.entry(ctx, tableDeviceMetadata, "localhost")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	p := &Platform{
		Hostname: meta["hostname"],
		OS:       d.entry.OS,
		Version:  "unknown",
		HwSKU:    meta["hwsku"],
		Platform: meta["platform"],
	}
	if p.Hostname == "" {
		p.Hostname = d.Name
	}
	if p.OS == "" {
		p.OS = "sonic"
	}

	if d.tunnel != nil {
		out, err := d.tunnel.ExecCommand("cat " + sonicVersionFile)
		if err != nil {
			util.WithDevice(d.Name).Warnf("reading %s: %v", sonicVersionFile, err)
		} else if v, err := parseSonicVersion([]byte(out)); err != nil {
			util.WithDevice(d.Name).Warnf("parsing %s: %v", sonicVersionFile, err)
		} else if v != "" {
			p.Version = v
		}
	}
	return p, nil
}

// buildBGPState converts CONFIG_DB BGP_GLOBALS and STATE_DB
// BGP_NEIGHBOR_TABLE entries into a learned BGP state tree.
//
// Neighbor keys are "<addr>" (default VRF) or "<vrf>|<addr>". SONiC runs a
// single bgpd, so every VRF sits under the instance named by the default
// VRF's local ASN, or "default" when BGP globals are absent.
func buildBGPState(globals, neighbors map[string]map[string]string) bgp.BGPState {
	instance := DefaultVRF
	if g, ok := globals[DefaultVRF]; ok && g["local_asn"] != "" {
		instance = g["local_asn"]
	}

	state := bgp.BGPState{}
	for key, vals := range neighbors {
		vrf, addr := DefaultVRF, key
		if i := strings.Index(key, "|"); i >= 0 {
			vrf, addr = key[:i], key[i+1:]
		}
		state.AddNeighbor(instance, vrf, addr, neighborAttrs(vals))
	}
	return state
}

// neighborAttrs maps STATE_DB field names to learned attribute names.
// Absent fields are omitted so a missing state stays soft-missing.
func neighborAttrs(vals map[string]string) map[string]any {
	fields := map[string]string{
		"state":             bgp.AttrSessionState,
		"remote_asn":        "remote_as",
		"local_asn":         "local_as",
		"peer_group":        "peer_group",
		"prefixes_received": "prefixes_received",
		"prefixes_sent":     "prefixes_sent",
		"uptime":            "uptime",
	}
	attrs := make(map[string]any, len(fields))
	for from, to := range fields {
		if v, ok := vals[from]; ok {
			attrs[to] = v
		}
	}
	return attrs
}

// parseSonicVersion extracts build_version from sonic_version.yml.
func parseSonicVersion(data []byte) (string, error) {
	var v struct {
		BuildVersion string `yaml:"build_version"`
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return "", err
	}
	return strings.Trim(v.BuildVersion, "'\""), nil
}
