// Package scoring holds the pure per-question-type scoring rules. It has no
// persistence or transport dependencies so the grading engine and the skill
// analyzers share one implementation.
//
// Numeric policy: every point subdivision uses decimal arithmetic; the only
// rounding is the final 2-decimal round-half-up on partial-credit questions
// (matching, fill-blanks). Callers round the aggregated total themselves.
package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Score awards points for a learner's raw answer against the question
// definition. Manual types (essay, code) always return ErrManualType; the
// caller routes those to a human grader.
func Score(d *Definition, answer json.RawMessage) (decimal.Decimal, error) {
	switch d.Type {
	case MultipleChoice:
		return scoreMultipleChoice(d, answer)
	case TrueFalse:
		return scoreTrueFalse(d, answer)
	case ShortAnswer:
		return scoreShortAnswer(d, answer)
	case Matching:
		return scoreMatching(d, answer)
	case FillBlanks:
		return scoreFillBlanks(d, answer)
	case Essay, Code:
		return decimal.Zero, ErrManualType
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrBadDefinition, d.Type)
}

// IsCorrect reports whether the answer earns full points. Used by the skill
// pipeline, where partial credit does not count as mastery.
func IsCorrect(d *Definition, answer json.RawMessage) (bool, error) {
	score, err := Score(d, answer)
	if err != nil {
		return false, err
	}
	return score.GreaterThanOrEqual(decimal.NewFromInt(int64(d.Points))), nil
}

func points(d *Definition) decimal.Decimal {
	return decimal.NewFromInt(int64(d.Points))
}

// round2 rounds half away from zero to 2 decimal places; for the
// non-negative values produced here that is round-half-up.
func round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// decodeSelection accepts either a JSON array of option ids or a single id.
func decodeSelection(answer json.RawMessage) ([]string, error) {
	var many []string
	if err := json.Unmarshal(answer, &many); err == nil {
		return many, nil
	}
	var one string
	if err := json.Unmarshal(answer, &one); err == nil {
		return []string{one}, nil
	}
	return nil, fmt.Errorf("%w: expected option id or list of ids", ErrBadAnswer)
}

func scoreMultipleChoice(d *Definition, answer json.RawMessage) (decimal.Decimal, error) {
	data := d.MultipleChoice
	if data == nil {
		return decimal.Zero, fmt.Errorf("%w: missing options", ErrBadDefinition)
	}
	selected, err := decodeSelection(answer)
	if err != nil {
		return decimal.Zero, err
	}

	correct := make(map[string]bool)
	for _, opt := range data.Options {
		if opt.IsCorrect {
			correct[opt.ID] = true
		}
	}
	selectedSet := make(map[string]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	if data.AllowMultiple {
		// Exact set match, no partial credit.
		if len(selectedSet) != len(correct) {
			return decimal.Zero, nil
		}
		for id := range selectedSet {
			if !correct[id] {
				return decimal.Zero, nil
			}
		}
		return points(d), nil
	}

	if len(selectedSet) == 1 && correct[selected[0]] {
		return points(d), nil
	}
	return decimal.Zero, nil
}

func scoreTrueFalse(d *Definition, answer json.RawMessage) (decimal.Decimal, error) {
	data := d.TrueFalse
	if data == nil || data.CorrectAnswer == nil {
		// Legacy records without correct_answer cannot be auto-graded.
		return decimal.Zero, ErrUngradable
	}

	got, err := normalizeBool(answer)
	if err != nil {
		return decimal.Zero, err
	}
	if got == *data.CorrectAnswer {
		return points(d), nil
	}
	return decimal.Zero, nil
}

// normalizeBool maps the accepted true/false answer shapes (bool, string, or
// a single-element option list) onto a boolean. Strings compare
// case-insensitively against "true".
func normalizeBool(answer json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(answer, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(answer, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true"), nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(answer, &list); err == nil && len(list) == 1 {
		return normalizeBool(list[0])
	}
	return false, fmt.Errorf("%w: expected boolean or string", ErrBadAnswer)
}

func scoreShortAnswer(d *Definition, answer json.RawMessage) (decimal.Decimal, error) {
	data := d.ShortAnswer
	if data == nil {
		return decimal.Zero, fmt.Errorf("%w: missing correct_answers", ErrBadDefinition)
	}
	var text string
	if err := json.Unmarshal(answer, &text); err != nil {
		return decimal.Zero, fmt.Errorf("%w: expected text", ErrBadAnswer)
	}

	got := fold(strings.TrimSpace(text), data.CaseSensitive)
	for _, want := range data.CorrectAnswers {
		if got == fold(strings.TrimSpace(want), data.CaseSensitive) {
			return points(d), nil
		}
	}
	return decimal.Zero, nil
}

func fold(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

type matchingAnswer struct {
	PromptID        string `json:"prompt_id"`
	SelectedMatchID string `json:"selected_match_id"`
}

func scoreMatching(d *Definition, answer json.RawMessage) (decimal.Decimal, error) {
	data := d.Matching
	if data == nil || len(data.CorrectPairs) == 0 {
		return decimal.Zero, fmt.Errorf("%w: missing correct_pairs", ErrBadDefinition)
	}
	var submitted []matchingAnswer
	if err := json.Unmarshal(answer, &submitted); err != nil {
		return decimal.Zero, fmt.Errorf("%w: expected list of prompt/match selections", ErrBadAnswer)
	}

	selected := make(map[string]string, len(submitted))
	for _, a := range submitted {
		selected[a.PromptID] = a.SelectedMatchID
	}

	// Each pair is worth an even decimal share of the question's points.
	share := points(d).Div(decimal.NewFromInt(int64(len(data.CorrectPairs))))
	earned := decimal.Zero
	for _, pair := range data.CorrectPairs {
		if selected[pair.PromptID] == pair.MatchID {
			earned = earned.Add(share)
		}
	}
	return round2(earned), nil
}

func scoreFillBlanks(d *Definition, answer json.RawMessage) (decimal.Decimal, error) {
	data := d.FillBlanks
	if data == nil || len(data.Blanks) == 0 {
		return decimal.Zero, fmt.Errorf("%w: missing blanks", ErrBadDefinition)
	}
	var submitted map[string]string
	if err := json.Unmarshal(answer, &submitted); err != nil {
		return decimal.Zero, fmt.Errorf("%w: expected blank id to text map", ErrBadAnswer)
	}

	share := points(d).Div(decimal.NewFromInt(int64(len(data.Blanks))))
	earned := decimal.Zero
	for id, blank := range data.Blanks {
		got := fold(strings.TrimSpace(submitted[id]), data.CaseSensitive)
		for _, want := range blank.Correct {
			if got == fold(strings.TrimSpace(want), data.CaseSensitive) {
				earned = earned.Add(share)
				break
			}
		}
	}
	return round2(earned), nil
}
