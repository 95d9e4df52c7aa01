// internal/game/character_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsValid(t *testing.T) {
	stats := validStats("digger")
	assert.True(t, stats.Valid())

	missingName := stats
	missingName.Name = ""
	assert.False(t, missingName.Valid())

	missingArtifact := stats
	missingArtifact.ArtifactName = ""
	assert.False(t, missingArtifact.Valid())

	badSum := stats
	badSum.Heroic = 4
	assert.False(t, badSum.Valid(), "attributes must sum to five")

	zeroAttr := stats
	zeroAttr.Heroic = 3
	zeroAttr.Booksmart = 0
	zeroAttr.Streetwise = 2
	assert.False(t, zeroAttr.Valid(), "every attribute must be at least one")
}

func TestCharacterCreationRejectsInvalidSheet(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	ids, _ := seedPlayers(s, 3)
	for _, id := range ids {
		s.players[id].player.Stats = nil
	}
	done := runPhase(s.characterCreation)

	bad := validStats("cheater")
	bad.Heroic = 5 // sum is 7
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdSetCharacter, Stats: &bad}))
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdReadyForGame}))

	good := validStats("honest")
	enqueue(t, s, msg(ids[1], ClientMessage{Cmd: CmdSetCharacter, Stats: &good}))
	enqueue(t, s, msg(ids[1], ClientMessage{Cmd: CmdReadyForGame}))

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	assert.False(t, s.players[ids[0]].player.Ready)
	assert.True(t, s.players[ids[1]].player.Ready)
}

func TestCharacterCreationCompletes(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	ids, sinks := seedPlayers(s, 3)
	for _, id := range ids {
		s.players[id].player.Stats = nil
	}
	done := runPhase(s.characterCreation)

	for i, id := range ids {
		stats := validStats("hero")
		stats.Heroic = 1 + i%3
		stats.Booksmart = 1
		stats.Streetwise = 5 - stats.Heroic - stats.Booksmart
		enqueue(t, s, msg(id, ClientMessage{Cmd: CmdSetCharacter, Stats: &stats}))
		enqueue(t, s, msg(id, ClientMessage{Cmd: CmdReadyForGame}))
	}

	require.Equal(t, outcomeOK, waitOutcome(t, done))

	st, ok := sinks[0].lastState()
	require.True(t, ok)
	for _, player := range st.Players {
		require.NotNil(t, player.Stats)
	}
}

func TestCharacterIntroductionWaitsForEveryone(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	ids, _ := seedPlayers(s, 3)
	done := runPhase(s.characterIntroduction)

	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdReadyForGame}))
	enqueue(t, s, msg(ids[1], ClientMessage{Cmd: CmdReadyForGame}))
	enqueue(t, s, msg(ids[2], ClientMessage{Cmd: CmdReadyForGame}))

	require.Equal(t, outcomeOK, waitOutcome(t, done))
}
