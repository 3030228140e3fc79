package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, "client"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, "client"), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", ""))
	assert.False(t, m.Enabled("never", "client"))
	assert.False(t, m.Enabled("junk", "client"))

	first := m.Enabled("canary", "5f0c8a4e")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "5f0c8a4e"), "rollout must be deterministic per subject")
	}
	assert.False(t, m.Enabled("canary", ""), "partial rollout requires a subject")
}

func TestParseNamesAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,Topic_Coding=ON, y = 20% ,z=off ")

	assert.Equal(t, []string{"topic_coding", "y", "z"}, m.Names())
	assert.True(t, m.Defined("TOPIC_CODING"))
	assert.False(t, m.Defined("bad"))

	snap := m.Snapshot("")
	assert.Equal(t, map[string]bool{"topic_coding": true, "y": false, "z": false}, snap)
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled("x", "y"))
	assert.False(t, m.Defined("x"))
	assert.Empty(t, m.Names())
	assert.Empty(t, m.Snapshot("y"))
}
