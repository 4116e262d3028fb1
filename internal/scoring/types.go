package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
	Essay          QuestionType = "ESSAY"
	Code           QuestionType = "CODE"
	Matching       QuestionType = "MATCHING"
	FillBlanks     QuestionType = "FILL_BLANKS"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay, Code, Matching, FillBlanks:
		return true
	}
	return false
}

// ManuallyGraded reports whether the type can never be auto-scored.
func (t QuestionType) ManuallyGraded() bool {
	return t == Essay || t == Code
}

var (
	ErrManualType    = errors.New("question type requires manual grading")
	ErrUngradable    = errors.New("question definition cannot be auto-graded")
	ErrBadAnswer     = errors.New("answer payload does not match question type")
	ErrBadDefinition = errors.New("invalid type_specific_data")
)

// JSON field names below follow the stored wire format of existing question
// records and attempt answers; they must not be renamed.

type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type MultipleChoiceData struct {
	Options       []Option `json:"options"`
	AllowMultiple bool     `json:"allow_multiple"`
}

type TrueFalseData struct {
	CorrectAnswer *bool    `json:"correct_answer,omitempty"`
	Options       []Option `json:"options,omitempty"`
}

type ShortAnswerData struct {
	CorrectAnswers []string `json:"correct_answers,omitempty"`
	CaseSensitive  bool     `json:"case_sensitive"`
}

type MatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Pair struct {
	PromptID string `json:"prompt_id"`
	MatchID  string `json:"match_id"`
}

type MatchingData struct {
	Prompts      []MatchItem `json:"prompts"`
	Matches      []MatchItem `json:"matches"`
	CorrectPairs []Pair      `json:"correct_pairs,omitempty"`
}

type Blank struct {
	Correct []string `json:"correct,omitempty"`
}

type FillBlanksData struct {
	Text          string           `json:"text"`
	Blanks        map[string]Blank `json:"blanks"`
	CaseSensitive bool             `json:"case_sensitive"`
}

type CodeData struct {
	Language string `json:"language,omitempty"`
}

// Definition is the typed form of a question's type_specific_data: exactly
// one variant pointer is set, selected by Type.
type Definition struct {
	Type   QuestionType
	Points int

	MultipleChoice *MultipleChoiceData
	TrueFalse      *TrueFalseData
	ShortAnswer    *ShortAnswerData
	Matching       *MatchingData
	FillBlanks     *FillBlanksData
	Code           *CodeData
}

// ParseDefinition decodes the raw type_specific_data blob into the variant
// matching qtype. It does not validate; callers at the data-entry boundary
// should also call Validate.
func ParseDefinition(qtype QuestionType, points int, raw json.RawMessage) (*Definition, error) {
	if !qtype.Valid() {
		return nil, fmt.Errorf("%w: unknown question type %q", ErrBadDefinition, qtype)
	}
	d := &Definition{Type: qtype, Points: points}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var err error
	switch qtype {
	case MultipleChoice:
		d.MultipleChoice = &MultipleChoiceData{}
		err = json.Unmarshal(raw, d.MultipleChoice)
	case TrueFalse:
		d.TrueFalse = &TrueFalseData{}
		err = json.Unmarshal(raw, d.TrueFalse)
	case ShortAnswer:
		d.ShortAnswer = &ShortAnswerData{}
		err = json.Unmarshal(raw, d.ShortAnswer)
	case Matching:
		d.Matching = &MatchingData{}
		err = json.Unmarshal(raw, d.Matching)
	case FillBlanks:
		d.FillBlanks = &FillBlanksData{}
		err = json.Unmarshal(raw, d.FillBlanks)
	case Code:
		d.Code = &CodeData{}
		err = json.Unmarshal(raw, d.Code)
	case Essay:
		// no type-specific payload
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDefinition, err)
	}
	return d, nil
}

// Validate checks the internal consistency of the definition. It runs when
// questions are created or updated, so grading never sees a malformed
// definition under normal operation.
func (d *Definition) Validate() error {
	if d.Points <= 0 {
		return fmt.Errorf("%w: points must be positive", ErrBadDefinition)
	}
	switch d.Type {
	case MultipleChoice:
		return d.MultipleChoice.validate()
	case TrueFalse:
		return d.TrueFalse.validate()
	case ShortAnswer:
		return d.ShortAnswer.validate()
	case Matching:
		return d.Matching.validate()
	case FillBlanks:
		return d.FillBlanks.validate()
	case Essay, Code:
		return nil
	}
	return fmt.Errorf("%w: unknown question type %q", ErrBadDefinition, d.Type)
}

func (m *MultipleChoiceData) validate() error {
	if m == nil || len(m.Options) < 2 {
		return fmt.Errorf("%w: multiple choice needs at least two options", ErrBadDefinition)
	}
	seen := make(map[string]bool, len(m.Options))
	correct := 0
	for _, opt := range m.Options {
		if opt.ID == "" {
			return fmt.Errorf("%w: option without id", ErrBadDefinition)
		}
		if seen[opt.ID] {
			return fmt.Errorf("%w: duplicate option id %q", ErrBadDefinition, opt.ID)
		}
		seen[opt.ID] = true
		if opt.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return fmt.Errorf("%w: multiple choice needs at least one correct option", ErrBadDefinition)
	}
	if !m.AllowMultiple && correct > 1 {
		return fmt.Errorf("%w: single-select question has %d correct options", ErrBadDefinition, correct)
	}
	return nil
}

func (t *TrueFalseData) validate() error {
	if t == nil || t.CorrectAnswer == nil {
		return fmt.Errorf("%w: true/false needs correct_answer", ErrBadDefinition)
	}
	return nil
}

func (s *ShortAnswerData) validate() error {
	if s == nil || len(s.CorrectAnswers) == 0 {
		return fmt.Errorf("%w: short answer needs correct_answers", ErrBadDefinition)
	}
	return nil
}

func (m *MatchingData) validate() error {
	if m == nil || len(m.CorrectPairs) == 0 {
		return fmt.Errorf("%w: matching needs correct_pairs", ErrBadDefinition)
	}
	prompts := make(map[string]bool, len(m.Prompts))
	for _, p := range m.Prompts {
		prompts[p.ID] = true
	}
	matches := make(map[string]bool, len(m.Matches))
	for _, mt := range m.Matches {
		matches[mt.ID] = true
	}
	seen := make(map[string]bool, len(m.CorrectPairs))
	for _, pair := range m.CorrectPairs {
		if !prompts[pair.PromptID] {
			return fmt.Errorf("%w: correct pair references unknown prompt %q", ErrBadDefinition, pair.PromptID)
		}
		if !matches[pair.MatchID] {
			return fmt.Errorf("%w: correct pair references unknown match %q", ErrBadDefinition, pair.MatchID)
		}
		if seen[pair.PromptID] {
			return fmt.Errorf("%w: prompt %q mapped twice", ErrBadDefinition, pair.PromptID)
		}
		seen[pair.PromptID] = true
	}
	return nil
}

func (f *FillBlanksData) validate() error {
	if f == nil || len(f.Blanks) == 0 {
		return fmt.Errorf("%w: fill-blanks needs blanks", ErrBadDefinition)
	}
	for id, b := range f.Blanks {
		if len(b.Correct) == 0 {
			return fmt.Errorf("%w: blank %q has no accepted answers", ErrBadDefinition, id)
		}
	}
	return nil
}
