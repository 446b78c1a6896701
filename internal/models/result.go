package models

import "math"

// Feedback is one AI-generated critique for a single passage or item. The AI
// output has no enforced schema, so Fields carries the parsed object as-is and
// every consumer checks field presence explicitly.
type Feedback struct {
	Skill  Skill          `json:"skill"`
	Fields map[string]any `json:"fields"`
}

// Number reads a numeric field, tolerating the types json.Unmarshal produces.
func (f Feedback) Number(key string) (float64, bool) {
	v, ok := f.Fields[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// QuestionAnalysis returns the per-question breakdown when present. Length is
// not guaranteed to match the originating passage's question count.
func (f Feedback) QuestionAnalysis() []map[string]any {
	raw, ok := f.Fields["question_analysis"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// SkillResult is the aggregated outcome for one skill.
type SkillResult struct {
	Percentage float64 `json:"percentage"` // 0-100
	Band       float64 `json:"band"`       // 0-9
}

// LocalScore is the deterministically computed correctness for a skill,
// independent of AI feedback availability.
type LocalScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// SubmissionResult is the immutable payload of a completed submission.
type SubmissionResult struct {
	AIFeedback  map[Skill][]Feedback  `json:"ai_feedback"`
	Results     map[Skill]SkillResult `json:"results"`
	LocalScores map[Skill]LocalScore  `json:"local_scores"`
	OverallBand float64               `json:"overall_band"`
	TotalTasks  int                   `json:"total_tasks"`
}

// FeedbackAvailable reports whether any AI feedback arrived for a skill.
// When false the UI shows the raw score with a "feedback unavailable" panel.
func (r *SubmissionResult) FeedbackAvailable(skill Skill) bool {
	return len(r.AIFeedback[skill]) > 0
}

// RoundBand rounds to the nearest half band, the IELTS convention.
func RoundBand(band float64) float64 {
	return math.Round(band*2) / 2
}

// ClampPercentage bounds a percentage to [0,100].
func ClampPercentage(p float64) float64 {
	return math.Min(100, math.Max(0, p))
}
