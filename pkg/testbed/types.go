// Package testbed loads the device inventory that bgpsum connects to.
//
// A testbed file is YAML:
//
//	testbed:
//	  name: workshop
//	devices:
//	  leaf1:
//	    alias: uut
//	    os: sonic
//	    credentials:
//	      default:
//	        username: admin
//	        password: "%ENV{LEAF_PASSWORD}"
//	    connections:
//	      ssh:
//	        ip: 10.0.0.11
//	      redis:
//	        ip: 10.0.0.11
//	        port: 6379
package testbed

// Default ports used when a connection omits one.
const (
	DefaultSSHPort   = 22
	DefaultRedisPort = 6379
)

// Testbed is a parsed testbed file.
type Testbed struct {
	Info    Info               `yaml:"testbed"`
	Devices map[string]*Device `yaml:"devices"`

	path string
}

// Info holds testbed-level metadata.
type Info struct {
	Name string `yaml:"name"`
}

// Device is one device entry. Name is filled from the map key.
type Device struct {
	Name        string                 `yaml:"-"`
	Alias       string                 `yaml:"alias,omitempty"`
	OS          string                 `yaml:"os,omitempty"`
	Type        string                 `yaml:"type,omitempty"`
	Credentials map[string]Credential  `yaml:"credentials,omitempty"`
	Connections map[string]*Connection `yaml:"connections,omitempty"`
}

// Credential is a username/password pair. Password may hold %ENV{VAR}
// (resolved at load time) or %ASK{} (resolved by ResolvePassword).
type Credential struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Connection is an address for one access method ("ssh", "redis").
type Connection struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port,omitempty"`
}

// Path returns the file the testbed was loaded from.
func (tb *Testbed) Path() string {
	return tb.path
}

// DefaultCredential returns the "default" credential, if any.
func (d *Device) DefaultCredential() Credential {
	return d.Credentials["default"]
}

// UsesSSH reports whether Redis must be reached through an SSH tunnel.
func (d *Device) UsesSSH() bool {
	return d.DefaultCredential().Username != ""
}

// SSHAddress returns the SSH host and port. Falls back to the redis IP.
func (d *Device) SSHAddress() (string, int) {
	if c := d.Connections["ssh"]; c != nil && c.IP != "" {
		port := c.Port
		if port == 0 {
			port = DefaultSSHPort
		}
		return c.IP, port
	}
	if c := d.Connections["redis"]; c != nil {
		return c.IP, DefaultSSHPort
	}
	return "", DefaultSSHPort
}

// RedisAddress returns the direct Redis host and port. Falls back to the ssh IP.
func (d *Device) RedisAddress() (string, int) {
	if c := d.Connections["redis"]; c != nil && c.IP != "" {
		port := c.Port
		if port == 0 {
			port = DefaultRedisPort
		}
		return c.IP, port
	}
	if c := d.Connections["ssh"]; c != nil {
		return c.IP, DefaultRedisPort
	}
	return "", DefaultRedisPort
}
