// internal/game/session.go
package game

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// MinPlayers is required to leave the lobby.
	MinPlayers = 3
	// MaxPlayers caps the lobby size.
	MaxPlayers = 5
	// QuestionsPerPlayer is the number of worldbuilding questions each player
	// answers during define-evil.
	QuestionsPerPlayer = 2
	// SuccessesNeeded completes a room.
	SuccessesNeeded = 3
	// FailuresNeeded loses the whole session inside a room.
	FailuresNeeded = 3
)

// playerEntry couples a player record with the live outbound sinks of all
// their connected clients.
type playerEntry struct {
	player Player
	sinks  []Sink
}

// Session is the authoritative coordinator for one running game. All state is
// owned by the single goroutine executing Run; transports communicate with it
// exclusively through the inbound event queue.
type Session struct {
	name   string
	log    logrus.FieldLogger
	dice   Dice
	events chan Event
	done   chan struct{}

	players   map[uuid.UUID]*playerEntry
	order     []uuid.UUID // join order, stable within the session
	kickVotes map[uuid.UUID]map[uuid.UUID]bool

	clues      []Clue
	knownClues []Clue
}

// NewSession builds a session for the given game name. Run must be started by
// the caller. A nil dice installs the time-seeded default.
func NewSession(name string, logger logrus.FieldLogger, dice Dice) *Session {
	if dice == nil {
		dice = NewDice()
	}
	return &Session{
		name:      name,
		log:       logger.WithField("game", name),
		dice:      dice,
		events:    make(chan Event, 256),
		done:      make(chan struct{}),
		players:   make(map[uuid.UUID]*playerEntry),
		kickVotes: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

// Enqueue places an event on the inbound queue. It returns false once the
// session has terminated, in which case the caller should treat the session
// as gone.
func (s *Session) Enqueue(ev Event) bool {
	select {
	case <-s.done:
		return false
	case s.events <- ev:
		return true
	}
}

// CloseQueue closes the inbound queue. Only the owner of all producers may
// call it; a closed queue is terminal for the session.
func (s *Session) CloseQueue() {
	close(s.events)
}

// Done reports whether the session goroutine has exited.
func (s *Session) Done() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// outcome is a phase handler's verdict: carry on, terminate the session in
// victory or defeat, or give up because the event queue closed.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeVictory
	outcomeDefeat
	outcomeClosed
	outcomeAbandoned
)

// Run drives the fixed phase sequence. It is the sole goroutine allowed to
// touch session state.
func (s *Session) Run() {
	defer close(s.done)
	s.log.Info("session started")

	out := s.lobby()
	if out == outcomeOK {
		out = s.defineEvil()
	}
	if out == outcomeOK {
		out = s.characterCreation()
	}
	if out == outcomeOK {
		out = s.characterIntroduction()
	}
	if out == outcomeOK {
		out = s.rooms()
	}
	if out == outcomeOK {
		out = s.finalBattle()
	}

	switch out {
	case outcomeVictory:
		s.log.Info("session won")
		s.end(PhaseVictory)
	case outcomeDefeat:
		s.log.Info("session lost")
		s.end(PhaseFailure)
	case outcomeClosed:
		s.log.Warn("inbound queue closed, terminating session")
	case outcomeAbandoned:
		s.log.Info("all players left, terminating session")
	}
}

func (s *Session) nextEvent() (Event, bool) {
	ev, ok := <-s.events
	return ev, ok
}

// end broadcasts the terminal snapshot, then drains late joins by replaying
// it and closing their sinks. The session exits once the queue closes or the
// last client disconnects.
func (s *Session) end(phase Phase) {
	state := GameState{Phase: phase}
	s.pushUniform(state)
	s.broadcast(notice(CmdEndGame))

	for {
		if s.clientCount() == 0 {
			return
		}
		ev, ok := s.nextEvent()
		if !ok {
			return
		}
		switch e := ev.(type) {
		case ClientJoin:
			_ = e.Sink.Send(s.snapshot(state))
			_ = e.Sink.Send(notice(CmdEndGame))
			e.Sink.Close()
		case ClientLeave:
			s.pruneSinks(e.PlayerID)
		}
	}
}

// --- client registry -------------------------------------------------------

// attachSink appends a new live sink for an existing player.
func (s *Session) attachSink(id uuid.UUID, sink Sink) {
	if entry, ok := s.players[id]; ok {
		entry.sinks = append(entry.sinks, sink)
	}
}

// pruneSinks drops every closed sink of the given player.
func (s *Session) pruneSinks(id uuid.UUID) {
	entry, ok := s.players[id]
	if !ok {
		return
	}
	live := entry.sinks[:0]
	for _, sink := range entry.sinks {
		if !sink.Closed() {
			live = append(live, sink)
		}
	}
	entry.sinks = live
}

// online reports whether the player has at least one live sink. Sinks that
// have closed but not yet been pruned do not count: a silently disconnected
// player must not inflate the kick quorum.
func (s *Session) online(id uuid.UUID) bool {
	entry, ok := s.players[id]
	if !ok {
		return false
	}
	for _, sink := range entry.sinks {
		if !sink.Closed() {
			return true
		}
	}
	return false
}

func (s *Session) clientCount() int {
	n := 0
	for _, entry := range s.players {
		n += len(entry.sinks)
	}
	return n
}

// sendEntry attempts delivery on every sink of one player, dropping sinks
// whose send fails. Delivery is best-effort; clients resynchronize through
// snapshots on reconnect.
func (s *Session) sendEntry(entry *playerEntry, msg ServerMessage) {
	live := entry.sinks[:0]
	for _, sink := range entry.sinks {
		if err := sink.Send(msg); err != nil {
			s.log.WithError(err).Debug("dropping dead sink")
			continue
		}
		live = append(live, sink)
	}
	entry.sinks = live
}

// broadcast sends msg to every client of every player.
func (s *Session) broadcast(msg ServerMessage) {
	for _, entry := range s.players {
		s.sendEntry(entry, msg)
	}
}

// unicast sends msg to every client of one player.
func (s *Session) unicast(id uuid.UUID, msg ServerMessage) {
	if entry, ok := s.players[id]; ok {
		s.sendEntry(entry, msg)
	}
}

// --- snapshots -------------------------------------------------------------

func (s *Session) playersCopy() map[uuid.UUID]Player {
	players := make(map[uuid.UUID]Player, len(s.players))
	for id, entry := range s.players {
		players[id] = entry.player
	}
	return players
}

func (s *Session) kickVotesCopy() map[uuid.UUID][]uuid.UUID {
	votes := make(map[uuid.UUID][]uuid.UUID, len(s.kickVotes))
	for candidate, voters := range s.kickVotes {
		ids := make([]uuid.UUID, 0, len(voters))
		for voter := range voters {
			ids = append(ids, voter)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		votes[candidate] = ids
	}
	return votes
}

func (s *Session) knownCluesCopy() []Clue {
	return append([]Clue(nil), s.knownClues...)
}

// snapshot builds a full-state snapshot with the given phase state.
func (s *Session) snapshot(state GameState) PushState {
	return PushState{
		Cmd:             CmdPushState,
		Players:         s.playersCopy(),
		GameState:       state,
		PlayerKickVotes: s.kickVotesCopy(),
		KnownClues:      s.knownCluesCopy(),
	}
}

// pushState broadcasts per-recipient snapshots. stateFor lets the room and
// final battle phases hide the active challenge from non-participants.
func (s *Session) pushState(stateFor func(viewer uuid.UUID) GameState) {
	players := s.playersCopy()
	votes := s.kickVotesCopy()
	clues := s.knownCluesCopy()
	for id, entry := range s.players {
		s.sendEntry(entry, PushState{
			Cmd:             CmdPushState,
			Players:         players,
			GameState:       stateFor(id),
			PlayerKickVotes: votes,
			KnownClues:      clues,
		})
	}
}

// pushUniform broadcasts the same snapshot to everyone.
func (s *Session) pushUniform(state GameState) {
	s.pushState(func(uuid.UUID) GameState { return state })
}

// pushTo sends a single-recipient snapshot, used when a client joins.
func (s *Session) pushTo(sink Sink, state GameState) {
	_ = sink.Send(s.snapshot(state))
}

// --- readiness helpers -----------------------------------------------------

func (s *Session) clearReady() {
	for _, entry := range s.players {
		entry.player.Ready = false
	}
}

func (s *Session) allReady() bool {
	for _, entry := range s.players {
		if !entry.player.Ready {
			return false
		}
	}
	return true
}

// rejoinOngoing implements the common post-lobby join rule: a known player
// gets a fresh sink plus a snapshot, an unknown one is turned away with
// game_is_ongoing.
func (s *Session) rejoinOngoing(e ClientJoin, state GameState) bool {
	if _, ok := s.players[e.PlayerID]; ok {
		s.attachSink(e.PlayerID, e.Sink)
		s.pushTo(e.Sink, state)
		return true
	}
	_ = e.Sink.Send(notice(CmdGameIsOngoing))
	e.Sink.Close()
	return false
}

// alivePlayers returns the ids of players who are neither dead nor possessed,
// in stable join order.
func (s *Session) alivePlayers() []uuid.UUID {
	var alive []uuid.UUID
	for _, id := range s.order {
		if entry, ok := s.players[id]; ok && entry.player.Alive() {
			alive = append(alive, id)
		}
	}
	return alive
}
