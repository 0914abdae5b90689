package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asm-inventory/internal/model"
)

func TestEntityCache_DeviceFirstWriteWins(t *testing.T) {
	c := New()

	_, ok := c.Device("SER1")
	assert.False(t, ok)

	first := &model.Device{SerialNumber: "SER1", Model: "iPad"}
	assert.Same(t, first, c.StoreDevice(first))

	second := &model.Device{SerialNumber: "SER1", Model: "Other"}
	assert.Same(t, first, c.StoreDevice(second))

	got, ok := c.Device("SER1")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestEntityCache_ServerIdentity(t *testing.T) {
	c := New()

	s := &model.Server{ID: "SRV1", Name: "Jamf"}
	assert.Same(t, s, c.StoreServer(s))
	assert.Same(t, s, c.StoreServer(&model.Server{ID: "SRV1", Name: "Jamf"}))

	got, ok := c.Server("SRV1")
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestEntityCache_MapsAreIndependent(t *testing.T) {
	c := New()
	c.StoreDevice(&model.Device{SerialNumber: "X"})
	c.StoreServer(&model.Server{ID: "X"})

	assert.Len(t, c.Devices(), 1)
	assert.Len(t, c.Servers(), 1)

	_, ok := c.Device("missing")
	assert.False(t, ok)
}

func TestEntityCache_ConcurrentStoresConverge(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	results := make([]*model.Server, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.StoreServer(&model.Server{ID: "SRV", Name: "n"})
		}(i)
	}
	wg.Wait()

	canonical, ok := c.Server("SRV")
	require.True(t, ok)
	for _, r := range results {
		assert.Same(t, canonical, r)
	}
}
