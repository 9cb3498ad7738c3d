package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedWGIGamepad struct {
	id      int
	reading WGIReading
}

func (g fixedWGIGamepad) ID() int                      { return g.id }
func (g fixedWGIGamepad) Poll() (WGIReading, error)    { return g.reading, nil }
func (g fixedWGIGamepad) SetVibration(l, r uint16) error { return nil }

type fixedWGISource struct {
	gamepads []WGIGamepad
}

func (s *fixedWGISource) Gamepads() []WGIGamepad { return s.gamepads }

func TestWGIRegistryUnclaimedExcludesClaimed(t *testing.T) {
	src := &fixedWGISource{gamepads: []WGIGamepad{
		fixedWGIGamepad{id: 1}, fixedWGIGamepad{id: 2},
	}}
	reg := NewWGIRegistry(src)

	reg.Claim(1)
	unclaimed := reg.Unclaimed()
	require.Len(t, unclaimed, 1)
	assert.Equal(t, 2, unclaimed[0].ID())
}

func TestWGIRegistryReleaseReclaims(t *testing.T) {
	src := &fixedWGISource{gamepads: []WGIGamepad{fixedWGIGamepad{id: 1}}}
	reg := NewWGIRegistry(src)

	reg.Claim(1)
	assert.Empty(t, reg.Unclaimed())

	reg.Release(1)
	assert.Len(t, reg.Unclaimed(), 1)
}

func TestWGIRegistryByID(t *testing.T) {
	src := &fixedWGISource{gamepads: []WGIGamepad{fixedWGIGamepad{id: 7}}}
	reg := NewWGIRegistry(src)

	assert.NotNil(t, reg.ByID(7))
	assert.Nil(t, reg.ByID(8))
}
