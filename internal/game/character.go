// internal/game/character.go
package game

// characterCreation lets each player build their sheet. The sheet may be
// replaced freely until the player flags ready; readiness requires a valid
// sheet (non-empty names, attributes >= 1 summing to 5).
func (s *Session) characterCreation() outcome {
	s.clearReady()
	state := GameState{Phase: PhaseCharacterCreation}
	s.pushUniform(state)

	for !s.allReady() {
		ev, ok := s.nextEvent()
		if !ok {
			return outcomeClosed
		}
		switch e := ev.(type) {
		case ClientJoin:
			s.rejoinOngoing(e, state)
		case ClientLeave:
			s.pruneSinks(e.PlayerID)
		case ClientMessageEvent:
			entry, known := s.players[e.PlayerID]
			if !known {
				continue
			}
			switch e.Msg.Cmd {
			case CmdSetCharacter:
				if entry.player.Ready || e.Msg.Stats == nil {
					continue
				}
				stats := *e.Msg.Stats
				entry.player.Stats = &stats
				s.pushUniform(state)
			case CmdReadyForGame:
				if entry.player.Stats != nil && entry.player.Stats.Valid() {
					entry.player.Ready = true
				}
				s.pushUniform(state)
			}
		}
	}
	return outcomeOK
}

// characterIntroduction is a pure pacing phase: each player presents their
// character and flags ready when done.
func (s *Session) characterIntroduction() outcome {
	s.clearReady()
	state := GameState{Phase: PhaseCharacterIntroduction}
	s.pushUniform(state)

	for !s.allReady() {
		ev, ok := s.nextEvent()
		if !ok {
			return outcomeClosed
		}
		switch e := ev.(type) {
		case ClientJoin:
			s.rejoinOngoing(e, state)
		case ClientLeave:
			s.pruneSinks(e.PlayerID)
		case ClientMessageEvent:
			entry, known := s.players[e.PlayerID]
			if !known {
				continue
			}
			if e.Msg.Cmd == CmdReadyForGame {
				entry.player.Ready = true
				s.pushUniform(state)
			}
		}
	}
	return outcomeOK
}
