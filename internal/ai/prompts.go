package ai

import (
	"fmt"
	"strings"

	"github.com/mvocoding/testmateai/internal/models"
)

// Prompt builders for the per-skill feedback requests. Each prompt asks the
// model for a single JSON object; ExtractJSON handles the cases where the
// model adds prose or fences anyway.

func buildPassagePrompt(skill models.Skill, passage *models.Passage, answers map[uint]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an IELTS %s examiner. Evaluate the student's answers for the passage below.\n\n", skill)
	if passage.Title != "" {
		fmt.Fprintf(&b, "Passage: %s\n", passage.Title)
	}
	fmt.Fprintf(&b, "%s\n\nQuestions and answers:\n", passage.Text)

	for i, q := range passage.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Text)
		if len(q.Options) > 0 {
			fmt.Fprintf(&b, "   Options: %s\n", strings.Join(q.Options, " | "))
		}
		fmt.Fprintf(&b, "   Correct answer: %s\n", q.CorrectAnswerText())
		answer, ok := answers[q.ID]
		if !ok || answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "   Student answer: %s\n", answer)
	}

	fmt.Fprintf(&b, "\nRespond with ONLY a JSON object of the form:\n")
	fmt.Fprintf(&b, `{"band": <0-9 in 0.5 steps>, "question_analysis": [{"question_number": <n>, "is_correct": <bool>, "student_answer": "...", "correct_answer": "...", "explanation": "..."}], "strengths": ["..."], "improvements": ["..."]}`)
	fmt.Fprintf(&b, "\nInclude one question_analysis entry per question, in order.")

	return b.String()
}

func buildSpeakingPrompt(question, transcript string) string {
	var b strings.Builder

	b.WriteString("You are an IELTS speaking examiner. Score the student's spoken response (transcribed below).\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	if strings.TrimSpace(transcript) == "" {
		b.WriteString("Transcript: (the student did not answer)\n")
	} else {
		fmt.Fprintf(&b, "Transcript: %s\n", transcript)
	}

	b.WriteString("\nRespond with ONLY a JSON object of the form:\n")
	b.WriteString(`{"band": <0-9 in 0.5 steps>, "fluency": "...", "pronunciation": "...", "grammar": "...", "vocabulary": "...", "feedback": "..."}`)

	return b.String()
}

func buildWritingPrompt(prompt, essay string, wordCount int) string {
	var b strings.Builder

	b.WriteString("You are an IELTS writing examiner. Score the student's essay against the task below.\n\n")
	fmt.Fprintf(&b, "Task: %s\n", prompt)
	fmt.Fprintf(&b, "Word count: %d\n", wordCount)
	if strings.TrimSpace(essay) == "" {
		b.WriteString("Essay: (the student did not write anything)\n")
	} else {
		fmt.Fprintf(&b, "Essay:\n%s\n", essay)
	}

	b.WriteString("\nRespond with ONLY a JSON object of the form:\n")
	b.WriteString(`{"overall_score": <0-9 in 0.5 steps>, "task_response": "...", "coherence": "...", "lexical_resource": "...", "grammar": "...", "feedback": "..."}`)

	return b.String()
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildChatPrompt assembles the assistant prompt with conversation history.
func BuildChatPrompt(message string, history []ChatMessage) string {
	var b strings.Builder

	b.WriteString("You are a friendly IELTS preparation assistant. Answer the student's question, keep it practical, and stay on the topic of English learning.\n\n")
	for _, h := range history {
		fmt.Fprintf(&b, "%s: %s\n", h.Role, h.Content)
	}
	fmt.Fprintf(&b, "student: %s\nassistant:", message)

	return b.String()
}
