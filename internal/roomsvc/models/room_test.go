package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameStateString(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "finished", StateFinished.String())
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "unknown", GameState(9).String())
}

func TestHasPlayer(t *testing.T) {
	r := &Room{Players: []int64{5, 7}}

	assert.True(t, r.HasPlayer(5))
	assert.True(t, r.HasPlayer(7))
	assert.False(t, r.HasPlayer(9))
}
