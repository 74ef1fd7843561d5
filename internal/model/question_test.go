package model

import "testing"

func validMultipleChoice() Question {
	return Question{
		Type:          QuestionTypeMultipleChoice,
		Prompt:        "Which layer owns retransmission?",
		Options:       []string{"Transport", "Network", "Session"},
		CorrectAnswer: "Transport",
		Points:        2,
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr bool
	}{
		{name: "valid multiple choice", mutate: func(q *Question) {}, wantErr: false},
		{name: "missing prompt", mutate: func(q *Question) { q.Prompt = "" }, wantErr: true},
		{name: "zero points", mutate: func(q *Question) { q.Points = 0 }, wantErr: true},
		{name: "negative points", mutate: func(q *Question) { q.Points = -3 }, wantErr: true},
		{name: "unknown type", mutate: func(q *Question) { q.Type = "matching" }, wantErr: true},
		{name: "single option", mutate: func(q *Question) { q.Options = []string{"Transport"} }, wantErr: true},
		{name: "empty option", mutate: func(q *Question) { q.Options = []string{"Transport", ""} }, wantErr: true},
		{
			name: "correct answer not among options",
			mutate: func(q *Question) {
				q.CorrectAnswer = "Physical"
			},
			wantErr: true,
		},
		{
			name: "correct answer differs in case",
			mutate: func(q *Question) {
				q.CorrectAnswer = "transport"
			},
			wantErr: true,
		},
		{
			name: "correct answer matches two options",
			mutate: func(q *Question) {
				q.Options = []string{"Transport", "Transport"}
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := validMultipleChoice()
			tc.mutate(&q)
			err := q.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestQuestionValidateTrueFalse(t *testing.T) {
	q := Question{
		Type:          QuestionTypeTrueFalse,
		Prompt:        "TCP is connection-oriented.",
		CorrectAnswer: "True",
		Points:        1,
	}
	if err := q.Validate(); err != nil {
		t.Fatalf("valid true_false rejected: %v", err)
	}

	q.CorrectAnswer = "true"
	if err := q.Validate(); err == nil {
		t.Fatal("lowercase correct answer accepted for true_false")
	}

	q.CorrectAnswer = "False"
	q.Options = []string{"Yes", "No"}
	if err := q.Validate(); err == nil {
		t.Fatal("custom options accepted for true_false")
	}
}

func TestQuestionValidateManualTypes(t *testing.T) {
	for _, typ := range []QuestionType{QuestionTypeShortAnswer, QuestionTypeEnumeration} {
		q := Question{
			Type:          typ,
			Prompt:        "Name the four transport handshake steps.",
			CorrectAnswer: "SYN, SYN-ACK, ACK",
			Points:        5,
		}
		if err := q.Validate(); err != nil {
			t.Fatalf("%s: valid question rejected: %v", typ, err)
		}

		q.CorrectAnswer = ""
		if err := q.Validate(); err == nil {
			t.Fatalf("%s: missing model answer accepted", typ)
		}

		q.CorrectAnswer = "SYN"
		q.Options = []string{"A", "B"}
		if err := q.Validate(); err == nil {
			t.Fatalf("%s: fixed options accepted", typ)
		}
	}
}

func TestQuestionNormalizeTrueFalse(t *testing.T) {
	q := Question{Type: QuestionTypeTrueFalse, Prompt: "x", CorrectAnswer: "True", Points: 1}
	q.Normalize()
	if len(q.Options) != 2 || q.Options[0] != "True" || q.Options[1] != "False" {
		t.Fatalf("normalize did not apply fixed true/false options, got %v", q.Options)
	}
}

func TestAutoGradable(t *testing.T) {
	if !QuestionTypeMultipleChoice.AutoGradable() || !QuestionTypeTrueFalse.AutoGradable() {
		t.Fatal("choice types must be auto-gradable")
	}
	if QuestionTypeShortAnswer.AutoGradable() || QuestionTypeEnumeration.AutoGradable() {
		t.Fatal("manual types must not be auto-gradable")
	}
}

func TestForTakerWithholdsKey(t *testing.T) {
	q := validMultipleChoice()
	view := q.ForTaker()
	if view.Prompt != q.Prompt || len(view.Options) != len(q.Options) {
		t.Fatal("taker view lost display fields")
	}
	// The taker view type has no correct-answer field at all; this test
	// pins the conversion so a future field addition is deliberate.
	_ = view
}
