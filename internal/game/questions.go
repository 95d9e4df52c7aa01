// internal/game/questions.go
package game

// Question is one of the ten worldbuilding prompts handed out during the
// define-evil phase. Two questions go to each player.
type Question int

const (
	QuestionSourceOfPower Question = iota
	QuestionWeakness
	QuestionIntention
	QuestionCreation
	QuestionDefeatEnemies
	QuestionMostTerrifying
	QuestionMotivation
	QuestionKeptSealed
	QuestionTrueForm
	QuestionTemptation
	questionCount
)

// AllQuestions returns the full question pool in declaration order.
func AllQuestions() []Question {
	questions := make([]Question, questionCount)
	for i := range questions {
		questions[i] = Question(i)
	}
	return questions
}

func (q Question) String() string {
	switch q {
	case QuestionSourceOfPower:
		return "What is the source of my power?"
	case QuestionWeakness:
		return "What is my greatest weakness and why?"
	case QuestionIntention:
		return "What do I intend to do with the world once I conquer it?"
	case QuestionCreation:
		return "What created me and how?"
	case QuestionDefeatEnemies:
		return "How do I defeat my enemies?"
	case QuestionMostTerrifying:
		return "What is most terrifying about me and why?"
	case QuestionMotivation:
		return "What motivates me and drives me forward?"
	case QuestionKeptSealed:
		return "What kept me sealed away all these years?"
	case QuestionTrueForm:
		return "What does my true form look like?"
	case QuestionTemptation:
		return "What do I promise to temp others to obey me?"
	}
	return ""
}

// Clue is a question/answer pair produced during define-evil. Clues drive the
// room themes and are consumed as successes in the final battle.
type Clue struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
