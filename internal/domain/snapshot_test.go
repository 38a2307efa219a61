package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot(t *testing.T) {
	data := []byte(`{"game":{"id":"g1","player1":"Alice","player2":"Bob","turns":[{"player":"Alice","score":20,"timestamp":1000,"duration":500}],"startTime":500},"phase":"playing","lastTurnTime":1000}`)

	snapshot, ok := DecodeSnapshot(data)
	require.True(t, ok)
	assert.Equal(t, "g1", snapshot.Game.ID)
	assert.Equal(t, int64(1000), snapshot.LastTurnTime)
	assert.Equal(t, "Bob", snapshot.Game.CurrentPlayer())
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"game":`,
		"not an object": `"hello"`,
		"no game":       `{"phase":"playing","lastTurnTime":1}`,
		"finished":      `{"game":{"id":"g1","player1":"A","player2":"B","turns":[],"startTime":1,"endTime":2},"phase":"playing"}`,
		"setup phase":   `{"game":{"id":"g1","player1":"A","player2":"B","turns":[],"startTime":1},"phase":"setup"}`,
		"missing names": `{"game":{"id":"g1","turns":[],"startTime":1},"phase":"playing"}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			snapshot, ok := DecodeSnapshot([]byte(data))
			assert.False(t, ok)
			assert.Nil(t, snapshot)
		})
	}
}
