// internal/game/define_evil.go
package game

import (
	"github.com/google/uuid"
)

// assignedQuestion is one worldbuilding prompt handed to a player, with their
// current answer. An empty answer counts as unanswered.
type assignedQuestion struct {
	question Question
	answer   string
}

// defineEvil hands every player two shuffled worldbuilding questions and
// waits until everyone has answered both and flagged ready. The collected
// answers become the session's clue deck.
func (s *Session) defineEvil() outcome {
	s.clearReady()
	s.kickVotes = make(map[uuid.UUID]map[uuid.UUID]bool)
	state := GameState{Phase: PhaseDefineEvil}
	s.pushUniform(state)

	pool := AllQuestions()
	s.dice.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	assigned := make(map[uuid.UUID][]assignedQuestion, len(s.players))
	next := 0
	for _, id := range s.order {
		questions := make([]assignedQuestion, 0, QuestionsPerPlayer)
		for k := 0; k < QuestionsPerPlayer; k++ {
			questions = append(questions, assignedQuestion{question: pool[next]})
			next++
		}
		assigned[id] = questions
		s.unicast(id, questionsMessage(questions))
	}

	for !s.allReady() {
		ev, ok := s.nextEvent()
		if !ok {
			return outcomeClosed
		}
		switch e := ev.(type) {
		case ClientJoin:
			if s.rejoinOngoing(e, state) {
				_ = e.Sink.Send(questionsMessage(assigned[e.PlayerID]))
			}
		case ClientLeave:
			s.pruneSinks(e.PlayerID)
		case ClientMessageEvent:
			entry, known := s.players[e.PlayerID]
			if !known {
				continue
			}
			switch e.Msg.Cmd {
			case CmdAnswers:
				if entry.player.Ready {
					continue
				}
				questions := assigned[e.PlayerID]
				for i := range questions {
					if i < len(e.Msg.Answers) {
						questions[i].answer = e.Msg.Answers[i]
					}
				}
			case CmdReadyForGame:
				if answersComplete(assigned[e.PlayerID]) {
					entry.player.Ready = true
					s.pushUniform(state)
				}
			}
		}
	}

	for _, id := range s.order {
		for _, q := range assigned[id] {
			s.clues = append(s.clues, Clue{Question: q.question.String(), Answer: q.answer})
		}
	}
	s.dice.Shuffle(len(s.clues), func(i, j int) {
		s.clues[i], s.clues[j] = s.clues[j], s.clues[i]
	})
	return outcomeOK
}

func questionsMessage(questions []assignedQuestion) Questions {
	prompts := make([]QuestionPrompt, 0, len(questions))
	for _, q := range questions {
		prompt := QuestionPrompt{Question: q.question.String()}
		if q.answer != "" {
			answer := q.answer
			prompt.Answer = &answer
		}
		prompts = append(prompts, prompt)
	}
	return Questions{Cmd: CmdQuestions, Questions: prompts}
}

func answersComplete(questions []assignedQuestion) bool {
	if len(questions) == 0 {
		return false
	}
	for _, q := range questions {
		if q.answer == "" {
			return false
		}
	}
	return true
}
