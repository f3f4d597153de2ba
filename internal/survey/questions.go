package survey

import (
	"encoding/json"
	"fmt"
	"os"
)

// Question is a single rating item presented to participants.
// Ratings are always integers from 1 to 5.
type Question struct {
	ID       string `json:"id" validate:"required"`
	Prompt   string `json:"prompt" validate:"required"`
	Category string `json:"category" validate:"required"`
}

// QuestionSet is the versioned questionnaire configuration. The category
// assignment drives the thematic averages, so it has to match whatever set
// the front-end presents for a cycle.
type QuestionSet struct {
	Version   string     `json:"version"`
	Questions []Question `json:"questions"`
}

// DefaultQuestions is the built-in questionnaire, used when no override
// file is configured.
func DefaultQuestions() QuestionSet {
	return QuestionSet{
		Version: "2025.1",
		Questions: []Question{
			{ID: "q1", Prompt: "My team leader communicates expectations clearly", Category: "communication"},
			{ID: "q2", Prompt: "My team leader listens to concerns and ideas", Category: "communication"},
			{ID: "q3", Prompt: "My team leader gives timely, useful feedback", Category: "communication"},
			{ID: "q4", Prompt: "I can raise problems without fear of negative consequences", Category: "trust"},
			{ID: "q5", Prompt: "My team leader follows through on commitments", Category: "trust"},
			{ID: "q6", Prompt: "My team leader treats everyone on the team fairly", Category: "trust"},
			{ID: "q7", Prompt: "My team leader supports my professional growth", Category: "development"},
			{ID: "q8", Prompt: "My team leader delegates meaningful responsibility", Category: "development"},
			{ID: "q9", Prompt: "My team leader recognizes good work", Category: "development"},
			{ID: "q10", Prompt: "I understand how my work contributes to our goals", Category: "direction"},
			{ID: "q11", Prompt: "My team leader sets realistic priorities", Category: "direction"},
			{ID: "q12", Prompt: "My team leader shields the team from avoidable churn", Category: "direction"},
		},
	}
}

// LoadQuestions reads a question set override from a JSON file.
func LoadQuestions(path string) (QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return QuestionSet{}, fmt.Errorf("reading questions file: %w", err)
	}

	var qs QuestionSet
	if err := json.Unmarshal(data, &qs); err != nil {
		return QuestionSet{}, fmt.Errorf("parsing questions file: %w", err)
	}

	if len(qs.Questions) == 0 {
		return QuestionSet{}, fmt.Errorf("questions file %s contains no questions", path)
	}

	seen := make(map[string]bool, len(qs.Questions))
	for _, q := range qs.Questions {
		if q.ID == "" || q.Category == "" {
			return QuestionSet{}, fmt.Errorf("questions file %s: every question needs an id and a category", path)
		}
		if seen[q.ID] {
			return QuestionSet{}, fmt.Errorf("questions file %s: duplicate question id %q", path, q.ID)
		}
		seen[q.ID] = true
	}

	return qs, nil
}

// Has reports whether the set contains a question with the given id.
func (qs QuestionSet) Has(id string) bool {
	for _, q := range qs.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Categories returns the category labels in order of first appearance.
func (qs QuestionSet) Categories() []string {
	var out []string
	seen := make(map[string]bool)
	for _, q := range qs.Questions {
		if !seen[q.Category] {
			seen[q.Category] = true
			out = append(out, q.Category)
		}
	}
	return out
}

// QuestionIDsByCategory groups question ids under their category label.
func (qs QuestionSet) QuestionIDsByCategory() map[string][]string {
	out := make(map[string][]string)
	for _, q := range qs.Questions {
		out[q.Category] = append(out[q.Category], q.ID)
	}
	return out
}
