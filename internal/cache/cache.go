// Package cache memoizes hydrated devices and MDM servers for the lifetime of a client.
package cache

import (
	"github.com/patrickmn/go-cache"

	"asm-inventory/internal/model"
)

// EntityCache holds two independent maps: serial → device and server ID → server.
// Entries never expire and are never invalidated; the first instance stored
// under a key is the canonical one.
type EntityCache struct {
	devices *cache.Cache
	servers *cache.Cache
}

// New creates an empty EntityCache.
func New() *EntityCache {
	return &EntityCache{
		devices: cache.New(cache.NoExpiration, 0),
		servers: cache.New(cache.NoExpiration, 0),
	}
}

// Device returns the cached device for serial.
func (c *EntityCache) Device(serial string) (*model.Device, bool) {
	v, ok := c.devices.Get(serial)
	if !ok {
		return nil, false
	}
	return v.(*model.Device), true
}

// StoreDevice caches d under its serial number unless one is already present,
// and returns the canonical instance.
func (c *EntityCache) StoreDevice(d *model.Device) *model.Device {
	if err := c.devices.Add(d.SerialNumber, d, cache.NoExpiration); err != nil {
		existing, _ := c.Device(d.SerialNumber)
		return existing
	}
	return d
}

// Server returns the cached server for id.
func (c *EntityCache) Server(id string) (*model.Server, bool) {
	v, ok := c.servers.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*model.Server), true
}

// StoreServer caches s under its ID unless one is already present, and
// returns the canonical instance.
func (c *EntityCache) StoreServer(s *model.Server) *model.Server {
	if err := c.servers.Add(s.ID, s, cache.NoExpiration); err != nil {
		existing, _ := c.Server(s.ID)
		return existing
	}
	return s
}

// Devices returns a snapshot of the device map.
func (c *EntityCache) Devices() map[string]*model.Device {
	items := c.devices.Items()
	out := make(map[string]*model.Device, len(items))
	for k, item := range items {
		out[k] = item.Object.(*model.Device)
	}
	return out
}

// Servers returns a snapshot of the server map.
func (c *EntityCache) Servers() map[string]*model.Server {
	items := c.servers.Items()
	out := make(map[string]*model.Server, len(items))
	for k, item := range items {
		out[k] = item.Object.(*model.Server)
	}
	return out
}
