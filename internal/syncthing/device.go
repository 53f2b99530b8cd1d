package syncthing

import "sync"

// Device is a remote peer known to the supervised instance's configuration.
type Device struct {
	id   string
	name string

	mu        sync.Mutex
	connected bool
	address   string
}

// NewDevice constructs a disconnected device.
func NewDevice(id, name string) *Device {
	return &Device{id: id, name: name}
}

// ID returns the stable device identifier.
func (d *Device) ID() string { return d.id }

// Name returns the configured display name.
func (d *Device) Name() string { return d.name }

// SetConnected marks the device connected at the given address.
func (d *Device) SetConnected(address string) {
	d.mu.Lock()
	d.connected = true
	d.address = address
	d.mu.Unlock()
}

// SetDisconnected marks the device disconnected and clears its address.
func (d *Device) SetDisconnected() {
	d.mu.Lock()
	d.connected = false
	d.address = ""
	d.mu.Unlock()
}

// Connection reports the current connection status and address. The address
// is empty while disconnected.
func (d *Device) Connection() (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected, d.address
}
