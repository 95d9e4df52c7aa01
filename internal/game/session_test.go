// internal/game/session_test.go
package game

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSink records everything the session sends to one client.
type fakeSink struct {
	mu     sync.Mutex
	msgs   []ServerMessage
	closed bool
}

func (f *fakeSink) Send(msg ServerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("sink closed")
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSink) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSink) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSink) messages() []ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ServerMessage(nil), f.msgs...)
}

func (f *fakeSink) hasNotice(cmd MessageType) bool {
	for _, msg := range f.messages() {
		if n, ok := msg.(Notice); ok && n.Cmd == cmd {
			return true
		}
	}
	return false
}

func (f *fakeSink) lastState() (PushState, bool) {
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if st, ok := msgs[i].(PushState); ok {
			return st, true
		}
	}
	return PushState{}, false
}

func (f *fakeSink) lastQuestions() (Questions, bool) {
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if q, ok := msgs[i].(Questions); ok {
			return q, true
		}
	}
	return Questions{}, false
}

func (f *fakeSink) lastResult() (ChallengeResult, bool) {
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if res, ok := msgs[i].(ChallengeResult); ok {
			return res, true
		}
	}
	return ChallengeResult{}, false
}

func (f *fakeSink) lastClue() (PushClue, bool) {
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if pc, ok := msgs[i].(PushClue); ok {
			return pc, true
		}
	}
	return PushClue{}, false
}

// scriptedDice replays queued rolls and leaves shuffles as the identity, so
// join order doubles as GM order in tests. Exhausted scripts yield all threes
// (no success, no possession pattern).
type scriptedDice struct {
	mu    sync.Mutex
	rolls [][]int
}

func (d *scriptedDice) queue(rolls ...[]int) {
	d.mu.Lock()
	d.rolls = append(d.rolls, rolls...)
	d.mu.Unlock()
}

func (d *scriptedDice) RollD6(n int) []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) > 0 {
		next := d.rolls[0]
		d.rolls = d.rolls[1:]
		return next
	}
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = 3
	}
	return rolls
}

func (d *scriptedDice) Shuffle(n int, swap func(i, j int)) {}

func validStats(name string) PlayerStats {
	stats := DefaultStats()
	stats.Name = name
	stats.ArtifactName = "tarnished amulet"
	stats.ArtifactOrigin = "a forgotten crypt"
	return stats
}

// seedPlayers installs n ready-to-play characters directly, bypassing the
// earlier phases. Must be called before the session goroutine starts.
func seedPlayers(s *Session, n int) ([]uuid.UUID, []*fakeSink) {
	ids := make([]uuid.UUID, n)
	sinks := make([]*fakeSink, n)
	for i := 0; i < n; i++ {
		ids[i] = uuid.New()
		sinks[i] = &fakeSink{}
		stats := validStats(fmt.Sprintf("hero-%d", i))
		player := NewPlayer()
		player.Name = fmt.Sprintf("player-%d", i)
		player.Stats = &stats
		s.players[ids[i]] = &playerEntry{player: player, sinks: []Sink{sinks[i]}}
		s.order = append(s.order, ids[i])
	}
	return ids, sinks
}

func seedClues(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.clues = append(s.clues, Clue{
			Question: fmt.Sprintf("question-%d", i),
			Answer:   fmt.Sprintf("answer-%d", i),
		})
	}
}

func runPhase(phase func() outcome) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() { ch <- phase() }()
	return ch
}

func waitOutcome(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(3 * time.Second):
		t.Fatal("phase did not finish")
		return outcomeClosed
	}
}

func enqueue(t *testing.T, s *Session, ev Event) {
	t.Helper()
	require.True(t, s.Enqueue(ev), "session rejected event %T", ev)
}

func msg(id uuid.UUID, m ClientMessage) ClientMessageEvent {
	return ClientMessageEvent{PlayerID: id, Msg: m}
}

func TestSessionRunLobbyToDefineEvil(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	go s.Run()
	defer s.CloseQueue()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	sinks := []*fakeSink{{}, {}, {}}
	for i, id := range ids {
		enqueue(t, s, ClientJoin{PlayerID: id, Sink: sinks[i]})
		enqueue(t, s, msg(id, ClientMessage{Cmd: CmdSetPlayerName, Name: fmt.Sprintf("p%d", i)}))
	}
	for _, id := range ids {
		enqueue(t, s, msg(id, ClientMessage{Cmd: CmdReadyForGame}))
	}

	// Once the last ready lands the session moves to define-evil and hands
	// everyone their questions.
	for _, sink := range sinks {
		sink := sink
		require.Eventually(t, func() bool {
			q, ok := sink.lastQuestions()
			return ok && len(q.Questions) == QuestionsPerPlayer
		}, 3*time.Second, 10*time.Millisecond)

		st, ok := sink.lastState()
		require.True(t, ok)
		assert.Equal(t, PhaseDefineEvil, st.GameState.Phase)
	}
}

func TestLobbyRejectsSixthPlayer(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	done := runPhase(s.lobby)

	for i := 0; i < MaxPlayers; i++ {
		enqueue(t, s, ClientJoin{PlayerID: uuid.New(), Sink: &fakeSink{}})
	}
	extra := &fakeSink{}
	enqueue(t, s, ClientJoin{PlayerID: uuid.New(), Sink: extra})

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	assert.True(t, extra.hasNotice(CmdGameIsFull))
	assert.True(t, extra.Closed())
	assert.Len(t, s.players, MaxPlayers)
}

func TestLobbyReconnectAttachesSecondSink(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	done := runPhase(s.lobby)

	id := uuid.New()
	first := &fakeSink{}
	second := &fakeSink{}
	enqueue(t, s, ClientJoin{PlayerID: id, Sink: first})
	enqueue(t, s, ClientJoin{PlayerID: id, Sink: second})

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	// The second tab resynchronizes through a snapshot and both stay attached.
	_, ok := second.lastState()
	assert.True(t, ok)
	assert.Len(t, s.players, 1)
	assert.Len(t, s.players[id].sinks, 2)
}

func TestVoteKickNeedsAllOnlineVoters(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	done := runPhase(s.lobby)

	ids := make([]uuid.UUID, 4)
	sinks := make([]*fakeSink, 4)
	for i := range ids {
		ids[i] = uuid.New()
		sinks[i] = &fakeSink{}
		enqueue(t, s, ClientJoin{PlayerID: ids[i], Sink: sinks[i]})
	}
	candidate := ids[3]

	// One voter against a candidate among three online non-candidates is not
	// enough.
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdVoteKickPlayer, PlayerID: candidate}))
	// ids[2] disconnects; the quorum shrinks to the two remaining online
	// players.
	sinks[2].Close()
	enqueue(t, s, ClientLeave{PlayerID: ids[2]})
	enqueue(t, s, msg(ids[1], ClientMessage{Cmd: CmdVoteKickPlayer, PlayerID: candidate}))

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	_, present := s.players[candidate]
	assert.False(t, present, "candidate should be kicked once every online non-candidate voted")
	assert.True(t, sinks[3].Closed())
	assert.Len(t, s.order, 3)
}

func TestVoteKickIgnoresSilentlyDisconnectedVoter(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	done := runPhase(s.lobby)

	ids := make([]uuid.UUID, 4)
	sinks := make([]*fakeSink, 4)
	for i := range ids {
		ids[i] = uuid.New()
		sinks[i] = &fakeSink{}
		enqueue(t, s, ClientJoin{PlayerID: ids[i], Sink: sinks[i]})
	}
	candidate := ids[3]

	// ids[2]'s connection dies without a leave event ever reaching the
	// session. The dead sink must not keep counting toward the quorum.
	sinks[2].Close()
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdVoteKickPlayer, PlayerID: candidate}))
	enqueue(t, s, msg(ids[1], ClientMessage{Cmd: CmdVoteKickPlayer, PlayerID: candidate}))

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	_, present := s.players[candidate]
	assert.False(t, present, "two votes from the two live players must suffice")
	assert.Len(t, s.order, 3)
}

func TestRevertVoteKick(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	done := runPhase(s.lobby)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		enqueue(t, s, ClientJoin{PlayerID: ids[i], Sink: &fakeSink{}})
	}
	candidate := ids[2]

	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdVoteKickPlayer, PlayerID: candidate}))
	enqueue(t, s, msg(ids[0], ClientMessage{Cmd: CmdRevertVoteKickPlayer, PlayerID: candidate}))
	enqueue(t, s, msg(ids[1], ClientMessage{Cmd: CmdVoteKickPlayer, PlayerID: candidate}))

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	_, present := s.players[candidate]
	assert.True(t, present, "a reverted vote must not count toward the quorum")
}

func TestSelfVoteIgnored(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	done := runPhase(s.lobby)

	id := uuid.New()
	enqueue(t, s, ClientJoin{PlayerID: id, Sink: &fakeSink{}})
	enqueue(t, s, msg(id, ClientMessage{Cmd: CmdVoteKickPlayer, PlayerID: id}))

	s.CloseQueue()
	require.Equal(t, outcomeClosed, waitOutcome(t, done))

	_, present := s.players[id]
	assert.True(t, present)
}

func TestEndDrainsLateJoiners(t *testing.T) {
	s := NewSession("temple", testLogger(), &scriptedDice{})
	_, sinks := seedPlayers(s, 3)

	done := make(chan struct{})
	go func() {
		s.end(PhaseVictory)
		close(done)
	}()

	late := &fakeSink{}
	enqueue(t, s, ClientJoin{PlayerID: uuid.New(), Sink: late})
	// The terminal phase exits once the last client is gone.
	for i, sink := range sinks {
		sink.Close()
		enqueue(t, s, ClientLeave{PlayerID: s.order[i]})
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("end phase did not drain")
	}

	st, ok := late.lastState()
	require.True(t, ok)
	assert.Equal(t, PhaseVictory, st.GameState.Phase)
	assert.True(t, late.hasNotice(CmdEndGame))
	assert.True(t, late.Closed())
	for _, sink := range sinks {
		assert.True(t, sink.hasNotice(CmdEndGame))
	}
}
