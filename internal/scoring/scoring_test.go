package scoring

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func mustDef(t *testing.T, qtype QuestionType, points int, raw string) *Definition {
	t.Helper()
	d, err := ParseDefinition(qtype, points, json.RawMessage(raw))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	return d
}

func mustScore(t *testing.T, d *Definition, answer string) decimal.Decimal {
	t.Helper()
	score, err := Score(d, json.RawMessage(answer))
	if err != nil {
		t.Fatalf("Score(%s): %v", answer, err)
	}
	return score
}

const mcSingle = `{
	"options": [
		{"id": "a", "text": "Paris", "is_correct": true},
		{"id": "b", "text": "Lyon", "is_correct": false},
		{"id": "c", "text": "Nice", "is_correct": false}
	],
	"allow_multiple": false
}`

func TestScoreMultipleChoice_SingleSelect(t *testing.T) {
	d := mustDef(t, MultipleChoice, 10, mcSingle)

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"correct as list", `["a"]`, "10"},
		{"correct as bare id", `"a"`, "10"},
		{"wrong option", `["b"]`, "0"},
		{"two selections", `["a","b"]`, "0"},
		{"empty selection", `[]`, "0"},
		{"unknown option", `["zzz"]`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustScore(t, d, tt.answer)
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScoreMultipleChoice_MultiSelectExactMatch(t *testing.T) {
	d := mustDef(t, MultipleChoice, 8, `{
		"options": [
			{"id": "a", "text": "2", "is_correct": true},
			{"id": "b", "text": "3", "is_correct": true},
			{"id": "c", "text": "4", "is_correct": false},
			{"id": "d", "text": "5", "is_correct": true}
		],
		"allow_multiple": true
	}`)

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"exact set", `["a","b","d"]`, "8"},
		{"order irrelevant", `["d","a","b"]`, "8"},
		{"duplicates collapse", `["a","a","b","d"]`, "8"},
		{"subset gets nothing", `["a","b"]`, "0"},
		{"superset gets nothing", `["a","b","c","d"]`, "0"},
		{"empty", `[]`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustScore(t, d, tt.answer)
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScoreTrueFalse(t *testing.T) {
	d := mustDef(t, TrueFalse, 5, `{"correct_answer": true}`)

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"bool true", `true`, "5"},
		{"bool false", `false`, "0"},
		{"string true", `"true"`, "5"},
		{"string TRUE", `"TRUE"`, "5"},
		{"string with spaces", `" true "`, "5"},
		{"string false", `"false"`, "0"},
		{"single-element list", `[true]`, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustScore(t, d, tt.answer)
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScoreTrueFalse_MissingCorrectAnswer(t *testing.T) {
	d := mustDef(t, TrueFalse, 5, `{}`)
	_, err := Score(d, json.RawMessage(`true`))
	if !errors.Is(err, ErrUngradable) {
		t.Fatalf("want ErrUngradable, got %v", err)
	}
}

func TestScoreShortAnswer(t *testing.T) {
	insensitive := mustDef(t, ShortAnswer, 4, `{
		"correct_answers": ["Paris", "City of Light"],
		"case_sensitive": false
	}`)
	sensitive := mustDef(t, ShortAnswer, 4, `{
		"correct_answers": ["Paris"],
		"case_sensitive": true
	}`)

	tests := []struct {
		name   string
		def    *Definition
		answer string
		want   string
	}{
		{"exact", insensitive, `"Paris"`, "4"},
		{"case folded", insensitive, `"pArIs"`, "4"},
		{"trimmed", insensitive, `"  Paris  "`, "4"},
		{"second accepted answer", insensitive, `"city of light"`, "4"},
		{"wrong", insensitive, `"London"`, "0"},
		{"sensitive exact", sensitive, `"Paris"`, "4"},
		{"sensitive wrong case", sensitive, `"paris"`, "0"},
		{"sensitive still trims", sensitive, `" Paris "`, "4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustScore(t, tt.def, tt.answer)
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

const matching4 = `{
	"prompts": [
		{"id": "p1", "text": "France"},
		{"id": "p2", "text": "Spain"},
		{"id": "p3", "text": "Italy"},
		{"id": "p4", "text": "Greece"}
	],
	"matches": [
		{"id": "m1", "text": "Paris"},
		{"id": "m2", "text": "Madrid"},
		{"id": "m3", "text": "Rome"},
		{"id": "m4", "text": "Athens"}
	],
	"correct_pairs": [
		{"prompt_id": "p1", "match_id": "m1"},
		{"prompt_id": "p2", "match_id": "m2"},
		{"prompt_id": "p3", "match_id": "m3"},
		{"prompt_id": "p4", "match_id": "m4"}
	]
}`

func TestScoreMatching_PartialCredit(t *testing.T) {
	d := mustDef(t, Matching, 10, matching4)

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"all correct", `[
			{"prompt_id":"p1","selected_match_id":"m1"},
			{"prompt_id":"p2","selected_match_id":"m2"},
			{"prompt_id":"p3","selected_match_id":"m3"},
			{"prompt_id":"p4","selected_match_id":"m4"}
		]`, "10"},
		{"half correct", `[
			{"prompt_id":"p1","selected_match_id":"m1"},
			{"prompt_id":"p2","selected_match_id":"m3"},
			{"prompt_id":"p3","selected_match_id":"m2"},
			{"prompt_id":"p4","selected_match_id":"m4"}
		]`, "5"},
		{"all wrong", `[
			{"prompt_id":"p1","selected_match_id":"m2"},
			{"prompt_id":"p2","selected_match_id":"m1"}
		]`, "0"},
		{"empty", `[]`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustScore(t, d, tt.answer)
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScoreMatching_ThreeWayShareRounds(t *testing.T) {
	d := mustDef(t, Matching, 10, `{
		"prompts": [{"id":"p1","text":"a"},{"id":"p2","text":"b"},{"id":"p3","text":"c"}],
		"matches": [{"id":"m1","text":"x"},{"id":"m2","text":"y"},{"id":"m3","text":"z"}],
		"correct_pairs": [
			{"prompt_id":"p1","match_id":"m1"},
			{"prompt_id":"p2","match_id":"m2"},
			{"prompt_id":"p3","match_id":"m3"}
		]
	}`)

	one := mustScore(t, d, `[{"prompt_id":"p1","selected_match_id":"m1"}]`)
	if one.String() != "3.33" {
		t.Errorf("one of three: got %s, want 3.33", one)
	}

	// Summing exact thirds before rounding must recover the full points,
	// not 9.99.
	all := mustScore(t, d, `[
		{"prompt_id":"p1","selected_match_id":"m1"},
		{"prompt_id":"p2","selected_match_id":"m2"},
		{"prompt_id":"p3","selected_match_id":"m3"}
	]`)
	if all.String() != "10" {
		t.Errorf("all three: got %s, want 10", all)
	}
}

func TestScoreFillBlanks(t *testing.T) {
	d := mustDef(t, FillBlanks, 10, `{
		"text": "The capital of France is {{b1}} and of Spain is {{b2}}.",
		"blanks": {
			"b1": {"correct": ["Paris"]},
			"b2": {"correct": ["Madrid", "madrid city"]}
		},
		"case_sensitive": false
	}`)

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"both correct", `{"b1":"Paris","b2":"Madrid"}`, "10"},
		{"one correct", `{"b1":"Paris","b2":"Barcelona"}`, "5"},
		{"alternate accepted", `{"b2":"madrid city"}`, "5"},
		{"all wrong", `{"b1":"Lyon","b2":"Sevilla"}`, "0"},
		{"missing blank", `{"b1":"paris"}`, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustScore(t, d, tt.answer)
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScoreFillBlanks_HalfRoundsUp(t *testing.T) {
	blanks := `{"blanks":{
		"b1":{"correct":["x"]},"b2":{"correct":["x"]},"b3":{"correct":["x"]},"b4":{"correct":["x"]},
		"b5":{"correct":["x"]},"b6":{"correct":["x"]},"b7":{"correct":["x"]},"b8":{"correct":["x"]}
	}}`
	d := mustDef(t, FillBlanks, 1, blanks)

	// 3 of 8 blanks at 1 point is 0.375, which must round up to 0.38.
	got := mustScore(t, d, `{"b1":"x","b2":"x","b3":"x"}`)
	if got.String() != "0.38" {
		t.Errorf("got %s, want 0.38", got)
	}
}

func TestScoreManualTypes(t *testing.T) {
	for _, qtype := range []QuestionType{Essay, Code} {
		d := mustDef(t, qtype, 20, `{}`)
		_, err := Score(d, json.RawMessage(`"my long answer"`))
		if !errors.Is(err, ErrManualType) {
			t.Errorf("%s: want ErrManualType, got %v", qtype, err)
		}
	}
}

func TestScoreBadAnswerShapes(t *testing.T) {
	tests := []struct {
		name   string
		def    *Definition
		answer string
	}{
		{"object for multiple choice", mustDef(t, MultipleChoice, 10, mcSingle), `{"id":"a"}`},
		{"number for short answer", mustDef(t, ShortAnswer, 4, `{"correct_answers":["x"]}`), `42`},
		{"string for matching", mustDef(t, Matching, 10, matching4), `"p1=m1"`},
		{"array for fill blanks", mustDef(t, FillBlanks, 10, `{"blanks":{"b1":{"correct":["x"]}}}`), `["x"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(tt.def, json.RawMessage(tt.answer))
			if !errors.Is(err, ErrBadAnswer) {
				t.Errorf("want ErrBadAnswer, got %v", err)
			}
		})
	}
}

func TestIsCorrectRequiresFullPoints(t *testing.T) {
	d := mustDef(t, Matching, 10, matching4)

	full, err := IsCorrect(d, json.RawMessage(`[
		{"prompt_id":"p1","selected_match_id":"m1"},
		{"prompt_id":"p2","selected_match_id":"m2"},
		{"prompt_id":"p3","selected_match_id":"m3"},
		{"prompt_id":"p4","selected_match_id":"m4"}
	]`))
	if err != nil || !full {
		t.Errorf("full match: got (%v, %v), want (true, nil)", full, err)
	}

	partial, err := IsCorrect(d, json.RawMessage(`[{"prompt_id":"p1","selected_match_id":"m1"}]`))
	if err != nil || partial {
		t.Errorf("partial match: got (%v, %v), want (false, nil)", partial, err)
	}
}

func TestValidateDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		qtype   QuestionType
		points  int
		raw     string
		wantErr bool
	}{
		{"valid single select", MultipleChoice, 10, mcSingle, false},
		{"one option only", MultipleChoice, 10, `{"options":[{"id":"a","text":"x","is_correct":true}]}`, true},
		{"no correct option", MultipleChoice, 10, `{"options":[{"id":"a","text":"x"},{"id":"b","text":"y"}]}`, true},
		{"duplicate option id", MultipleChoice, 10, `{"options":[{"id":"a","text":"x","is_correct":true},{"id":"a","text":"y"}]}`, true},
		{"single select with two correct", MultipleChoice, 10, `{"options":[{"id":"a","text":"x","is_correct":true},{"id":"b","text":"y","is_correct":true}]}`, true},
		{"valid true false", TrueFalse, 5, `{"correct_answer": false}`, false},
		{"true false without answer", TrueFalse, 5, `{}`, true},
		{"valid short answer", ShortAnswer, 4, `{"correct_answers":["x"]}`, false},
		{"short answer empty list", ShortAnswer, 4, `{"correct_answers":[]}`, true},
		{"valid matching", Matching, 10, matching4, false},
		{"pair references unknown prompt", Matching, 10, `{
			"prompts":[{"id":"p1","text":"a"}],
			"matches":[{"id":"m1","text":"x"}],
			"correct_pairs":[{"prompt_id":"p9","match_id":"m1"}]
		}`, true},
		{"prompt mapped twice", Matching, 10, `{
			"prompts":[{"id":"p1","text":"a"}],
			"matches":[{"id":"m1","text":"x"},{"id":"m2","text":"y"}],
			"correct_pairs":[{"prompt_id":"p1","match_id":"m1"},{"prompt_id":"p1","match_id":"m2"}]
		}`, true},
		{"valid fill blanks", FillBlanks, 10, `{"blanks":{"b1":{"correct":["x"]}}}`, false},
		{"blank with no accepted answers", FillBlanks, 10, `{"blanks":{"b1":{"correct":[]}}}`, true},
		{"zero points", TrueFalse, 0, `{"correct_answer": true}`, true},
		{"essay needs nothing", Essay, 20, `{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDefinition(tt.qtype, tt.points, json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("ParseDefinition: %v", err)
			}
			err = d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
