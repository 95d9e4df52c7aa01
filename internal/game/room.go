// internal/game/room.go
package game

import (
	"github.com/google/uuid"
)

// roomPhase is the mutable state of one room: its index, the rotating GM
// order and the running success/failure counters, plus the nested challenge
// state machine.
type roomPhase struct {
	idx       int
	gms       []uuid.UUID
	successes int
	failures  int
	pending   *pendingChallenge
}

func (r *roomPhase) gm() uuid.UUID { return r.gms[r.idx] }

// rooms runs one room per player in a single GM order shuffled once at entry.
// Room k uses clue k; a finished room reveals its clue to everyone.
func (s *Session) rooms() outcome {
	s.clearReady()
	gms := append([]uuid.UUID(nil), s.order...)
	s.dice.Shuffle(len(gms), func(i, j int) {
		gms[i], gms[j] = gms[j], gms[i]
	})

	for idx := range gms {
		room := &roomPhase{idx: idx, gms: gms}
		if out := s.runRoom(room); out != outcomeOK {
			return out
		}
		s.knownClues = append(s.knownClues, s.clues[idx])
	}
	return outcomeOK
}

// roomStateFor builds the per-recipient snapshot state: the active challenge
// is visible only to the GM and the targeted player.
func (s *Session) roomStateFor(r *roomPhase) func(viewer uuid.UUID) GameState {
	return func(viewer uuid.UUID) GameState {
		rs := RoomState{
			RoomIdx:   r.idx,
			GM:        r.gm(),
			Successes: r.successes,
			Failures:  r.failures,
		}
		if r.pending != nil && (viewer == r.gm() || viewer == r.pending.Challenge.PlayerID) {
			challenge := r.pending.Challenge
			rs.Challenge = &challenge
		}
		return GameState{Phase: PhaseRoom, Room: &rs}
	}
}

// roomLost reports whether the session is over: three failures, nobody left
// alive, or a lone survivor who is scheduled to be the GM of this or a later
// room (the game would stall with no one to challenge).
func (s *Session) roomLost(r *roomPhase) bool {
	if r.failures >= FailuresNeeded {
		return true
	}
	alive := s.alivePlayers()
	if len(alive) == 0 {
		return true
	}
	if len(alive) == 1 {
		for _, gm := range r.gms[r.idx:] {
			if gm == alive[0] {
				return true
			}
		}
	}
	return false
}

func (s *Session) runRoom(r *roomPhase) outcome {
	stateFor := s.roomStateFor(r)
	s.pushState(stateFor)
	s.unicast(r.gm(), PushClue{Cmd: CmdPushClue, Clue: s.clues[r.idx]})
	s.log.WithFields(map[string]interface{}{"room": r.idx, "gm": r.gm()}).Info("entering room")

	for {
		ev, ok := s.nextEvent()
		if !ok {
			return outcomeClosed
		}
		switch e := ev.(type) {
		case ClientJoin:
			s.handleRoomJoin(r, e, stateFor)
		case ClientLeave:
			s.pruneSinks(e.PlayerID)
		case ClientMessageEvent:
			if _, known := s.players[e.PlayerID]; !known {
				continue
			}
			if done := s.handleRoomMessage(r, e, stateFor); done {
				return outcomeOK
			}
		}
		if s.roomLost(r) {
			return outcomeDefeat
		}
	}
}

func (s *Session) handleRoomJoin(r *roomPhase, e ClientJoin, stateFor func(uuid.UUID) GameState) {
	if _, ok := s.players[e.PlayerID]; !ok {
		_ = e.Sink.Send(notice(CmdGameIsOngoing))
		e.Sink.Close()
		return
	}
	s.attachSink(e.PlayerID, e.Sink)
	_ = e.Sink.Send(PushState{
		Cmd:             CmdPushState,
		Players:         s.playersCopy(),
		GameState:       stateFor(e.PlayerID),
		PlayerKickVotes: s.kickVotesCopy(),
		KnownClues:      s.knownCluesCopy(),
	})
	if e.PlayerID == r.gm() {
		_ = e.Sink.Send(PushClue{Cmd: CmdPushClue, Clue: s.clues[r.idx]})
	}
	if r.pending != nil && r.pending.Rolls != nil && e.PlayerID == r.pending.Challenge.PlayerID {
		// Replay the held roll so the reconnecting target can still decide.
		target := s.players[e.PlayerID].player
		boon := target.Stats.ArtifactBoon
		_ = e.Sink.Send(ChallengeResult{
			Cmd:            CmdChallengeResult,
			Rolls:          r.pending.Rolls,
			Success:        r.pending.Success(),
			Possession:     Possession(r.pending.Rolls),
			CanUseArtifact: r.pending.Boon == nil && CanUseArtifact(r.pending.Rolls, boon, target.ArtifactUsed),
		})
	}
}

// handleRoomMessage applies one client command to the room. The returned
// flag is true once the GM advances out of a finished room.
func (s *Session) handleRoomMessage(r *roomPhase, e ClientMessageEvent, stateFor func(uuid.UUID) GameState) bool {
	isGM := e.PlayerID == r.gm()
	isTarget := r.pending != nil && e.PlayerID == r.pending.Challenge.PlayerID
	rolled := r.pending != nil && r.pending.Rolls != nil

	switch e.Msg.Cmd {
	case CmdRejectClue:
		if !isGM {
			return false
		}
		if r.idx > 0 && len(s.clues) > len(s.players) && r.successes+r.failures == 0 && r.pending == nil {
			s.clues = append(s.clues[:r.idx], s.clues[r.idx+1:]...)
			s.unicast(r.gm(), PushClue{Cmd: CmdPushClue, Clue: s.clues[r.idx]})
		} else {
			s.unicast(r.gm(), notice(CmdClueRejectionRejected))
		}

	case CmdOfferChallenge:
		if !isGM || r.pending != nil || r.successes >= SuccessesNeeded || e.Msg.Challenge == nil {
			return false
		}
		challenge := *e.Msg.Challenge
		target, ok := s.players[challenge.PlayerID]
		if !ok || challenge.PlayerID == r.gm() || !target.player.Alive() ||
			target.player.Stats == nil || !challenge.Attribute.Valid() {
			return false
		}
		r.pending = &pendingChallenge{Challenge: challenge}
		s.unicast(challenge.PlayerID, ReceivedChallenge{Cmd: CmdReceivedChallenge, Challenge: challenge})
		s.pushState(stateFor)

	case CmdChallengeAccepted:
		if !isTarget || rolled {
			return false
		}
		target := &s.players[e.PlayerID].player
		if resolved, success := s.rollChallenge(r.pending, target); resolved {
			if success {
				r.successes++
			}
			r.pending = nil
			s.pushState(stateFor)
		}

	case CmdChallengeRejected:
		if r.pending == nil || rolled || (!isGM && !isTarget) {
			return false
		}
		targetID := r.pending.Challenge.PlayerID
		r.pending = nil
		s.unicast(r.gm(), notice(CmdAbortedChallenge))
		s.unicast(targetID, notice(CmdAbortedChallenge))
		s.pushState(stateFor)

	case CmdUseArtifact:
		if !isTarget || !rolled || r.pending.Boon != nil {
			return false
		}
		target := &s.players[e.PlayerID].player
		if !CanUseArtifact(r.pending.Rolls, target.Stats.ArtifactBoon, target.ArtifactUsed) {
			return false
		}
		if resolved, success := s.spendArtifact(r.pending, target); resolved {
			if success {
				r.successes++
			}
			r.pending = nil
		}
		s.pushState(stateFor)

	case CmdTakeWound:
		if !isTarget || !rolled {
			return false
		}
		target := &s.players[e.PlayerID].player
		acceptWound(r.pending, target)
		r.successes++
		r.pending = nil
		s.pushState(stateFor)

	case CmdAcceptFate:
		if !isTarget || !rolled {
			return false
		}
		target := &s.players[e.PlayerID].player
		if acceptFate(r.pending, target) {
			r.successes++
		} else {
			r.failures++
		}
		r.pending = nil
		s.pushState(stateFor)

	case CmdReadyForGame:
		if isGM && r.successes >= SuccessesNeeded {
			return true
		}
	}
	return false
}
