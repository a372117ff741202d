package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndSnapshot(t *testing.T) {
	r := New()
	r.Register("extractor", "http://extractor:8000")
	r.Register("cache", "redis://cache:6379")

	services, connections := r.Snapshot()
	require.Len(t, services, 2)
	assert.Empty(t, connections)

	// sorted by name
	assert.Equal(t, "cache", services[0].Name)
	assert.Equal(t, "extractor", services[1].Name)
	assert.Equal(t, HealthUnknown, services[0].Health)
	assert.Nil(t, services[0].CheckedAt)
}

func TestSetHealth(t *testing.T) {
	r := New()
	r.Register("db", "postgres://db")

	require.NoError(t, r.SetHealth("db", HealthHealthy))
	services, _ := r.Snapshot()
	assert.Equal(t, HealthHealthy, services[0].Health)
	assert.NotNil(t, services[0].CheckedAt)

	assert.Error(t, r.SetHealth("unknown", HealthHealthy))
}

func TestConnections(t *testing.T) {
	r := New()
	r.Register("a", "")
	r.Register("b", "")

	require.NoError(t, r.Connect("a", "b"))
	assert.Error(t, r.Connect("a", "missing"))

	_, connections := r.Snapshot()
	require.Len(t, connections, 1)
	assert.Equal(t, Connection{From: "a", To: "b"}, connections[0])

	r.Disconnect("a", "b")
	_, connections = r.Snapshot()
	assert.Empty(t, connections)
}

func TestResetClearsState(t *testing.T) {
	r := New()
	r.Register("a", "")
	r.Register("b", "")
	require.NoError(t, r.Connect("a", "b"))

	r.Reset()

	services, connections := r.Snapshot()
	assert.Empty(t, services)
	assert.Empty(t, connections)
}

func TestSnapshotReturnsCopies(t *testing.T) {
	r := New()
	r.Register("a", "url")

	services, _ := r.Snapshot()
	services[0].Health = HealthUnhealthy

	again, _ := r.Snapshot()
	assert.Equal(t, HealthUnknown, again[0].Health)
}
