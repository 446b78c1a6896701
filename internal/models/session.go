package models

import "fmt"

type SessionState string

const (
	StateNotStarted   SessionState = "not_started"
	StateIntroduction SessionState = "introduction"
	StateInSection    SessionState = "in_section"
	StateSubmitting   SessionState = "submitting"
	StateResultsShown SessionState = "results_shown"
)

// AnswerMap maps an answer key to the user's raw answer: an option index for
// multiple choice, a string for free text, a bool for true/false. Keys are
// unique within a section.
type AnswerMap map[string]any

// Clone returns a shallow copy so a submission works on a snapshot.
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// PassageAnswerKey derives the key for the n-th question of a passage.
func PassageAnswerKey(passageID uint, questionIndex int) string {
	return fmt.Sprintf("%d-%d", passageID, questionIndex)
}

// QuestionAnswerKey derives the key for a standalone question.
func QuestionAnswerKey(questionID uint) string {
	return fmt.Sprintf("%d", questionID)
}

// SectionAnswers groups each section's AnswerMap.
type SectionAnswers map[Skill]AnswerMap

// Clone snapshots every section's answers.
func (s SectionAnswers) Clone() SectionAnswers {
	out := make(SectionAnswers, len(s))
	for skill, answers := range s {
		out[skill] = answers.Clone()
	}
	return out
}
