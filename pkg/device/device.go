// Package device learns BGP and platform state from SONiC devices.
//
// State is read from the device's Redis databases: CONFIG_DB (DB 4) for
// BGP globals and device metadata, STATE_DB (DB 6) for neighbor sessions.
// When the testbed gives SSH credentials, Redis is reached through an SSH
// tunnel; otherwise it is dialed directly.
package device

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/newtron-network/bgpsum/pkg/testbed"
	"github.com/newtron-network/bgpsum/pkg/util"
)

// Device is a connection to one testbed device.
type Device struct {
	Name string

	entry     *testbed.Device
	tunnel    *SSHTunnel // nil when Redis is dialed directly
	configDB  *dbClient
	stateDB   *dbClient
	connected bool

	mu sync.RWMutex
}

// NewDevice creates an unconnected device for a testbed entry.
func NewDevice(entry *testbed.Device) *Device {
	return &Device{
		Name:  entry.Name,
		entry: entry,
	}
}

// Connect opens the SSH tunnel (if configured) and both Redis databases.
// Calling Connect on a connected device is a no-op.
func (d *Device) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	var addr string
	if d.entry.UsesSSH() {
		cred := d.entry.DefaultCredential()
		host, port := d.entry.SSHAddress()
		tun, err := NewSSHTunnel(host, cred.Username, cred.Password, port)
		if err != nil {
			return fmt.Errorf("SSH tunnel to %s: %w", d.Name, err)
		}
		d.tunnel = tun
		addr = tun.LocalAddr()
	} else {
		host, port := d.entry.RedisAddress()
		addr = net.JoinHostPort(host, fmt.Sprint(port))
	}

	d.configDB = newDBClient("config_db", addr, ConfigDBIndex)
	if err := d.configDB.ping(ctx); err != nil {
		d.closeLocked()
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	d.stateDB = newDBClient("state_db", addr, StateDBIndex)
	if err := d.stateDB.ping(ctx); err != nil {
		d.closeLocked()
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	d.connected = true
	util.WithDevice(d.Name).Info("Connected")
	return nil
}

// Disconnect closes Redis clients and the tunnel. The first close error
// is returned; the device is disconnected either way.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	err := d.closeLocked()
	d.connected = false
	util.WithDevice(d.Name).Info("Disconnected")
	return err
}

// IsConnected reports whether Connect succeeded and Disconnect has not run.
func (d *Device) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Device) closeLocked() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if d.configDB != nil {
		keep(d.configDB.close())
		d.configDB = nil
	}
	if d.stateDB != nil {
		keep(d.stateDB.close())
		d.stateDB = nil
	}
	if d.tunnel != nil {
		keep(d.tunnel.Close())
		d.tunnel = nil
	}
	return first
}

func (d *Device) requireConnected() error {
	if !d.connected {
		return fmt.Errorf("%s: %w", d.Name, util.ErrNotConnected)
	}
	return nil
}
