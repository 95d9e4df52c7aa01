// internal/game/final_battle.go
package game

import (
	"github.com/google/uuid"
)

// finalBattlePhase is the mutable state of the closing confrontation: the GM
// set, the clue stock and the success counter racing its target.
type finalBattlePhase struct {
	gms       map[uuid.UUID]bool
	gmOrder   []uuid.UUID
	successes int
	target    int
	remaining []Clue
	pending   *pendingChallenge
}

// finalBattle pits the surviving players against the ancient evil. The dead
// and possessed play the evil as a GM collective; if everyone survived the
// rooms, one random player takes that role. Each challenge stakes one of the
// remaining clues; the battle is won at ceil(n/2) successes and lost once the
// clue stock cannot cover the missing successes.
func (s *Session) finalBattle() outcome {
	s.clearReady()

	fb := &finalBattlePhase{
		gms:    make(map[uuid.UUID]bool),
		target: (len(s.players) + 1) / 2,
	}
	for _, id := range s.order {
		if !s.players[id].player.Alive() {
			fb.gms[id] = true
			fb.gmOrder = append(fb.gmOrder, id)
		}
	}
	if len(fb.gms) == 0 {
		pick := append([]uuid.UUID(nil), s.order...)
		s.dice.Shuffle(len(pick), func(i, j int) {
			pick[i], pick[j] = pick[j], pick[i]
		})
		fb.gms[pick[0]] = true
		fb.gmOrder = []uuid.UUID{pick[0]}
	}
	fb.remaining = append([]Clue(nil), s.clues[:len(s.players)]...)

	stateFor := s.finalBattleStateFor(fb)
	s.pushState(stateFor)
	s.log.WithField("gms", len(fb.gms)).Info("entering final battle")

	for {
		if fb.successes >= fb.target {
			return outcomeVictory
		}
		if len(fb.remaining) < fb.target-fb.successes || s.finalBattleStuck(fb) {
			return outcomeDefeat
		}

		ev, ok := s.nextEvent()
		if !ok {
			return outcomeClosed
		}
		switch e := ev.(type) {
		case ClientJoin:
			s.handleFinalBattleJoin(fb, e, stateFor)
		case ClientLeave:
			s.pruneSinks(e.PlayerID)
		case ClientMessageEvent:
			if _, known := s.players[e.PlayerID]; !known {
				continue
			}
			s.handleFinalBattleMessage(fb, e, stateFor)
		}
	}
}

// finalBattleStuck reports that no live non-GM target remains, which makes
// further successes impossible.
func (s *Session) finalBattleStuck(fb *finalBattlePhase) bool {
	for _, id := range s.alivePlayers() {
		if !fb.gms[id] {
			return false
		}
	}
	return true
}

// finalBattleStateFor hides the active challenge and chosen clue from
// everyone but the GMs and the targeted player.
func (s *Session) finalBattleStateFor(fb *finalBattlePhase) func(viewer uuid.UUID) GameState {
	return func(viewer uuid.UUID) GameState {
		state := FinalBattleState{
			GMs:             append([]uuid.UUID(nil), fb.gmOrder...),
			Successes:       fb.successes,
			TargetSuccesses: fb.target,
			RemainingClues:  append([]Clue(nil), fb.remaining...),
		}
		if fb.pending != nil && (fb.gms[viewer] || viewer == fb.pending.Challenge.PlayerID) {
			challenge := fb.pending.Challenge
			clueIdx := fb.pending.ClueIdx
			state.Challenge = &challenge
			state.ChosenClue = &clueIdx
		}
		return GameState{Phase: PhaseFinalBattle, FinalBattle: &state}
	}
}

func (s *Session) handleFinalBattleJoin(fb *finalBattlePhase, e ClientJoin, stateFor func(uuid.UUID) GameState) {
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
	if fb.pending != nil && fb.pending.Rolls != nil && e.PlayerID == fb.pending.Challenge.PlayerID {
		target := s.players[e.PlayerID].player
		boon := target.Stats.ArtifactBoon
		_ = e.Sink.Send(ChallengeResult{
			Cmd:            CmdChallengeResult,
			Rolls:          fb.pending.Rolls,
			Success:        fb.pending.Success(),
			Possession:     Possession(fb.pending.Rolls),
			CanUseArtifact: fb.pending.Boon == nil && CanUseArtifact(fb.pending.Rolls, boon, target.ArtifactUsed),
		})
	}
}

// spendClue removes the staked clue from the stock after a resolved
// challenge. In contrast to rooms, the final battle consumes the clue even on
// failure and on a taken wound.
func (fb *finalBattlePhase) spendClue() {
	idx := fb.pending.ClueIdx
	fb.remaining = append(fb.remaining[:idx], fb.remaining[idx+1:]...)
}

func (s *Session) handleFinalBattleMessage(fb *finalBattlePhase, e ClientMessageEvent, stateFor func(uuid.UUID) GameState) {
	isGM := fb.gms[e.PlayerID]
	isTarget := fb.pending != nil && e.PlayerID == fb.pending.Challenge.PlayerID
	rolled := fb.pending != nil && fb.pending.Rolls != nil

	switch e.Msg.Cmd {
	case CmdOfferChallengeFinal:
		if !isGM || fb.pending != nil || e.Msg.Challenge == nil || e.Msg.ClueIdx == nil {
			return
		}
		clueIdx := *e.Msg.ClueIdx
		if clueIdx < 0 || clueIdx >= len(fb.remaining) {
			return
		}
		challenge := *e.Msg.Challenge
		target, ok := s.players[challenge.PlayerID]
		if !ok || fb.gms[challenge.PlayerID] || !target.player.Alive() ||
			target.player.Stats == nil || !challenge.Attribute.Valid() {
			return
		}
		fb.pending = &pendingChallenge{Challenge: challenge, ClueIdx: clueIdx}
		s.unicast(challenge.PlayerID, ReceivedChallenge{
			Cmd:       CmdReceivedChallenge,
			Challenge: challenge,
			ClueIdx:   &clueIdx,
		})
		s.pushState(stateFor)

	case CmdChallengeAccepted:
		if !isTarget || rolled {
			return
		}
		target := &s.players[e.PlayerID].player
		if resolved, success := s.rollChallenge(fb.pending, target); resolved {
			if success {
				fb.spendClue()
				fb.successes++
			}
			fb.pending = nil
			s.pushState(stateFor)
		}

	case CmdChallengeRejected:
		if fb.pending == nil || rolled || (!isGM && !isTarget) {
			return
		}
		targetID := fb.pending.Challenge.PlayerID
		fb.pending = nil
		for _, gm := range fb.gmOrder {
			s.unicast(gm, notice(CmdAbortedChallenge))
		}
		s.unicast(targetID, notice(CmdAbortedChallenge))
		s.pushState(stateFor)

	case CmdUseArtifact:
		if !isTarget || !rolled || fb.pending.Boon != nil {
			return
		}
		target := &s.players[e.PlayerID].player
		if !CanUseArtifact(fb.pending.Rolls, target.Stats.ArtifactBoon, target.ArtifactUsed) {
			return
		}
		if resolved, success := s.spendArtifact(fb.pending, target); resolved {
			if success {
				fb.spendClue()
				fb.successes++
			}
			fb.pending = nil
		}
		s.pushState(stateFor)

	case CmdTakeWound:
		if !isTarget || !rolled {
			return
		}
		target := &s.players[e.PlayerID].player
		acceptWound(fb.pending, target)
		fb.spendClue()
		fb.successes++
		fb.pending = nil
		s.pushState(stateFor)

	case CmdAcceptFate:
		if !isTarget || !rolled {
			return
		}
		target := &s.players[e.PlayerID].player
		success := acceptFate(fb.pending, target)
		fb.spendClue()
		if success {
			fb.successes++
		}
		fb.pending = nil
		s.pushState(stateFor)
	}
}
