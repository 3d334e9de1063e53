// Package settings manages persistent user settings for the bgpsum CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/newtron-network/bgpsum/pkg/util"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultTestbed is the testbed file used when -t is not specified
	DefaultTestbed string `json:"default_testbed,omitempty"`

	// StateFilter is the session state counted by show and check
	StateFilter string `json:"state_filter,omitempty"`
}

// keys maps each JSON key to its field.
var keys = map[string]func(*Settings) *string{
	"default_testbed": func(s *Settings) *string { return &s.DefaultTestbed },
	"state_filter":    func(s *Settings) *string { return &s.StateFilter },
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "bgpsum_settings.json"
	}
	return filepath.Join(home, ".bgpsum", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Set assigns a setting by its JSON key.
func (s *Settings) Set(key, value string) error {
	field, ok := keys[key]
	if !ok {
		return util.NewValidationError(fmt.Sprintf("unknown setting %q (valid: %v)", key, Keys()))
	}
	*field(s) = value
	return nil
}

// Get returns a setting by its JSON key.
func (s *Settings) Get(key string) (string, error) {
	field, ok := keys[key]
	if !ok {
		return "", util.NewNotFoundError("setting", key)
	}
	return *field(s), nil
}

// GetTestbed returns flag if non-empty, else the default testbed.
func (s *Settings) GetTestbed(flag string) string {
	if flag != "" {
		return flag
	}
	return s.DefaultTestbed
}

// GetStateFilter returns flag if non-empty, else the saved filter. An
// empty result means the extractor's default.
func (s *Settings) GetStateFilter(flag string) string {
	if flag != "" {
		return flag
	}
	return s.StateFilter
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
