// internal/game/define_evil_test.go
package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineEvilCollectsAllAnswers(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	ids, sinks := seedPlayers(s, 3)
	done := runPhase(s.defineEvil)

	for i, id := range ids {
		answers := []string{
			fmt.Sprintf("answer-%d-0", i),
			fmt.Sprintf("answer-%d-1", i),
		}
		enqueue(t, s, msg(id, ClientMessage{Cmd: CmdAnswers, Answers: answers}))
		enqueue(t, s, msg(id, ClientMessage{Cmd: CmdReadyForGame}))
	}

	require.Equal(t, outcomeOK, waitOutcome(t, done))

	// Each player got exactly two distinct questions and every question was
	// handed out at most once.
	seen := map[string]bool{}
	for _, sink := range sinks {
		q, ok := sink.lastQuestions()
		require.True(t, ok)
		require.Len(t, q.Questions, QuestionsPerPlayer)
		for _, prompt := range q.Questions {
			assert.False(t, seen[prompt.Question], "question %q assigned twice", prompt.Question)
			seen[prompt.Question] = true
		}
	}

	// Three players, two answers each.
	require.Len(t, s.clues, 6)
	for _, clue := range s.clues {
		assert.NotEmpty(t, clue.Question)
		assert.NotEmpty(t, clue.Answer)
	}
}

func TestDefineEvilReadyRequiresCompleteAnswers(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	ids, _ := seedPlayers(s, 3)
	done := runPhase(s.defineEvil)

	// Ready without answers must not stick.
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdReadyForGame}))
	// A partial answer set is not complete either.
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdAnswers, Answers: []string{"only one"}}))
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdReadyForGame}))

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))
	assert.False(t, s.players[ids[0]].player.Ready)
}

func TestDefineEvilRejoinReplaysQuestions(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	ids, sinks := seedPlayers(s, 3)
	done := runPhase(s.defineEvil)

	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdAnswers, Answers: []string{"a", "b"}}))

	fresh := &fakeSink{}
	enqueue(t, s, ClientJoin{PlayerID: ids[0], Sink: fresh})

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	orig, ok := sinks[0].lastQuestions()
	require.True(t, ok)
	replayed, ok := fresh.lastQuestions()
	require.True(t, ok)
	require.Len(t, replayed.Questions, QuestionsPerPlayer)
	// The replay carries the answers given so far.
	for i, prompt := range replayed.Questions {
		assert.Equal(t, orig.Questions[i].Question, prompt.Question)
		require.NotNil(t, prompt.Answer)
	}
	assert.Equal(t, "a", *replayed.Questions[0].Answer)
	assert.Equal(t, "b", *replayed.Questions[1].Answer)
}

func TestQuestionCatalogue(t *testing.T) {
	all := AllQuestions()
	require.Len(t, all, 10)

	texts := map[string]bool{}
	for _, q := range all {
		text := q.String()
		assert.NotEmpty(t, text)
		texts[text] = true
	}
	assert.Len(t, texts, 10, "question texts must be distinct")
	assert.Contains(t, texts, "What is the source of my power?")
}
