// internal/game/lobby.go
package game

import (
	"github.com/google/uuid"
)

// lobby gathers players until at least MinPlayers are present and everyone
// has flagged ready. It is the only phase in which player records are created
// and the only one in which players can be removed by vote.
func (s *Session) lobby() outcome {
	state := GameState{Phase: PhaseLobby}

	for len(s.players) < MinPlayers || !s.allReady() {
		ev, ok := s.nextEvent()
		if !ok {
			return outcomeClosed
		}
		switch e := ev.(type) {
		case ClientJoin:
			s.handleLobbyJoin(e, state)
		case ClientLeave:
			s.pruneSinks(e.PlayerID)
		case ClientMessageEvent:
			if _, known := s.players[e.PlayerID]; !known {
				continue
			}
			switch e.Msg.Cmd {
			case CmdSetPlayerName:
				s.players[e.PlayerID].player.Name = e.Msg.Name
				s.pushUniform(state)
			case CmdReadyForGame:
				s.players[e.PlayerID].player.Ready = true
				s.pushUniform(state)
			case CmdVoteKickPlayer:
				s.voteKick(e.PlayerID, e.Msg.PlayerID)
				if len(s.players) == 0 {
					return outcomeAbandoned
				}
				s.pushUniform(state)
			case CmdRevertVoteKickPlayer:
				if voters, ok := s.kickVotes[e.Msg.PlayerID]; ok {
					delete(voters, e.PlayerID)
				}
			}
		}
	}
	return outcomeOK
}

func (s *Session) handleLobbyJoin(e ClientJoin, state GameState) {
	if _, ok := s.players[e.PlayerID]; ok {
		s.attachSink(e.PlayerID, e.Sink)
		s.pushTo(e.Sink, state)
		return
	}
	if len(s.players) >= MaxPlayers {
		_ = e.Sink.Send(notice(CmdGameIsFull))
		e.Sink.Close()
		return
	}
	s.players[e.PlayerID] = &playerEntry{
		player: NewPlayer(),
		sinks:  []Sink{e.Sink},
	}
	s.order = append(s.order, e.PlayerID)
	s.log.WithField("player", e.PlayerID).Info("player joined")
	s.pushUniform(state)
}

// voteKick records voter's vote against candidate and kicks the candidate
// once every currently-online non-candidate has voted. Offline players keep
// their record but have no say.
func (s *Session) voteKick(voter, candidate uuid.UUID) {
	if voter == candidate {
		return
	}
	if _, ok := s.players[candidate]; !ok {
		return
	}
	votes := s.kickVotes[candidate]
	if votes == nil {
		votes = make(map[uuid.UUID]bool)
		s.kickVotes[candidate] = votes
	}
	votes[voter] = true

	online := 0
	onlineVotes := 0
	for id := range s.players {
		if id == candidate || !s.online(id) {
			continue
		}
		online++
		if votes[id] {
			onlineVotes++
		}
	}
	if onlineVotes >= online {
		s.removePlayer(candidate)
		s.log.WithField("player", candidate).Info("player kicked by vote")
	}
}

// removePlayer deletes the record, closes its sinks and scrubs the id from
// every vote set.
func (s *Session) removePlayer(id uuid.UUID) {
	if entry, ok := s.players[id]; ok {
		for _, sink := range entry.sinks {
			sink.Close()
		}
	}
	delete(s.players, id)
	delete(s.kickVotes, id)
	for _, voters := range s.kickVotes {
		delete(voters, id)
	}
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
