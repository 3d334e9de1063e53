package testbed

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/bgpsum/pkg/util"
)

// askMarker in a password field means "prompt at connect time".
const askMarker = "%ASK{}"

var envRef = regexp.MustCompile(`%ENV\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, resolves and validates a testbed file.
func Load(path string) (*Testbed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading testbed %s: %w", path, err)
	}
	tb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("testbed %s: %w", path, err)
	}
	tb.path = path
	return tb, nil
}

// Parse decodes and validates testbed YAML.
func Parse(data []byte) (*Testbed, error) {
	var tb Testbed
	if err := yaml.Unmarshal(data, &tb); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	for name, d := range tb.Devices {
		if d == nil {
			d = &Device{}
			tb.Devices[name] = d
		}
		d.Name = name
		for key, cred := range d.Credentials {
			cred.Password = expandEnv(cred.Password)
			cred.Username = expandEnv(cred.Username)
			d.Credentials[key] = cred
		}
	}

	if err := tb.validate(); err != nil {
		return nil, err
	}
	return &tb, nil
}

// expandEnv replaces %ENV{VAR} references. Unset variables expand to "".
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		return os.Getenv(name)
	})
}

func (tb *Testbed) validate() error {
	v := &util.ValidationBuilder{}
	v.Add(len(tb.Devices) > 0, "testbed has no devices")

	aliases := make(map[string]string)
	for _, name := range tb.Names() {
		d := tb.Devices[name]
		sshIP, _ := d.SSHAddress()
		redisIP, _ := d.RedisAddress()
		if sshIP == "" && redisIP == "" {
			v.AddErrorf("device %s: no ssh or redis connection address", name)
		}
		if d.Alias == "" {
			continue
		}
		if other, ok := aliases[d.Alias]; ok {
			v.AddErrorf("device %s: alias %q already used by %s", name, d.Alias, other)
			continue
		}
		if _, clash := tb.Devices[d.Alias]; clash && d.Alias != name {
			v.AddErrorf("device %s: alias %q collides with a device name", name, d.Alias)
			continue
		}
		aliases[d.Alias] = name
	}
	return v.Build()
}

// Names returns device names in sorted order.
func (tb *Testbed) Names() []string {
	names := make([]string, 0, len(tb.Devices))
	for name := range tb.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Device looks a device up by name, then by alias.
func (tb *Testbed) Device(nameOrAlias string) (*Device, error) {
	if d, ok := tb.Devices[nameOrAlias]; ok {
		return d, nil
	}
	for _, name := range tb.Names() {
		if d := tb.Devices[name]; d.Alias == nameOrAlias {
			return d, nil
		}
	}
	return nil, util.NewNotFoundError("device", nameOrAlias)
}

// Select resolves names (or aliases) to devices. An empty selection
// returns every device in name order.
func (tb *Testbed) Select(names []string) ([]*Device, error) {
	if len(names) == 0 {
		out := make([]*Device, 0, len(tb.Devices))
		for _, name := range tb.Names() {
			out = append(out, tb.Devices[name])
		}
		return out, nil
	}

	out := make([]*Device, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		d, err := tb.Device(n)
		if err != nil {
			return nil, err
		}
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out, nil
}
