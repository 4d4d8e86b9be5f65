package contract

import (
	"errors"
	"testing"
)

func asContractError(t *testing.T, err error) *Error {
	t.Helper()
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %T, want *contract.Error", err)
	}
	return cerr
}

func TestValidateGoal(t *testing.T) {
	tests := []struct {
		name        string
		doc         map[string]any
		wantCode    string
		wantMessage string
		wantAction  string
	}{
		{
			name:     "nil payload",
			doc:      nil,
			wantCode: CodeGoalEmptyResponse,
		},
		{
			name:     "empty payload",
			doc:      map[string]any{},
			wantCode: CodeGoalEmptyResponse,
		},
		{
			name:        "invalid goal carries model message",
			doc:         map[string]any{"isValidGoal": false, "errorMessage": "too vague"},
			wantCode:    CodeGoalInvalid,
			wantMessage: "too vague",
			wantAction:  ActionRetry,
		},
		{
			name:        "invalid goal with blank message gets default",
			doc:         map[string]any{"isValidGoal": false, "errorMessage": "   "},
			wantCode:    CodeGoalInvalid,
			wantMessage: "Goal did not meet minimum specificity requirements.",
		},
		{
			name:     "truthy but non-boolean isValidGoal rejected",
			doc:      map[string]any{"isValidGoal": "yes", "clarificationQuestion": "why?"},
			wantCode: CodeGoalInvalid,
		},
		{
			name:       "valid goal without clarification question",
			doc:        map[string]any{"isValidGoal": true},
			wantCode:   CodeGoalMissingClarify,
			wantAction: ActionRestartOrRetry,
		},
		{
			name:     "blank clarification question",
			doc:      map[string]any{"isValidGoal": true, "clarificationQuestion": "  "},
			wantCode: CodeGoalMissingClarify,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGoal(tt.doc)
			cerr := asContractError(t, err)
			if cerr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", cerr.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && cerr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", cerr.Message, tt.wantMessage)
			}
			if tt.wantAction != "" && cerr.RetryAction != tt.wantAction {
				t.Errorf("RetryAction = %q, want %q", cerr.RetryAction, tt.wantAction)
			}
		})
	}
}

func TestValidateGoal_Valid(t *testing.T) {
	err := ValidateGoal(map[string]any{
		"isValidGoal":           true,
		"clarificationQuestion": "What is your timeline?",
	})
	if err != nil {
		t.Fatalf("ValidateGoal() error = %v", err)
	}
}

func validPitch() map[string]any {
	return map[string]any{
		"hero": map[string]any{
			"title":       "Launch your store",
			"description": "A 3-week plan to go live",
		},
		"process": []any{
			map[string]any{"step": float64(1), "title": "Discovery"},
		},
		"missions": []any{
			map[string]any{"id": "m1", "title": "Pick a niche", "points": float64(25)},
			map[string]any{"id": "m2", "title": "Set up payments", "points": float64(25)},
		},
	}
}

func TestValidateClarify(t *testing.T) {
	tests := []struct {
		name        string
		doc         map[string]any
		wantCode    string
		wantMessage string
	}{
		{
			name:     "nil payload",
			doc:      nil,
			wantCode: CodeClarifyInvalidPayload,
		},
		{
			name:        "invalid clarification carries model message",
			doc:         map[string]any{"isValidClarification": false, "errorMessage": "answers too short"},
			wantCode:    CodeClarifyInvalid,
			wantMessage: "answers too short",
		},
		{
			name:     "valid flag but missing pitch",
			doc:      map[string]any{"isValidClarification": true},
			wantCode: CodeClarifyMissingPitch,
		},
		{
			name: "pitch as malformed string",
			doc: map[string]any{
				"isValidClarification": true,
				"personalizedPitch":    "{not json",
			},
			wantCode: CodeClarifyInvalidPitch,
		},
		{
			name: "pitch missing sections lists them",
			doc: map[string]any{
				"isValidClarification": true,
				"personalizedPitch": map[string]any{
					"hero": map[string]any{"title": "t", "description": "d"},
				},
			},
			wantCode:    CodeClarifyIncomplete,
			wantMessage: "Incomplete AI response - missing: process, missions",
		},
		{
			name: "hero missing description",
			doc: map[string]any{
				"isValidClarification": true,
				"personalizedPitch": func() map[string]any {
					p := validPitch()
					p["hero"] = map[string]any{"title": "t"}
					return p
				}(),
			},
			wantCode: CodeClarifyInvalidHero,
		},
		{
			name: "process not a list",
			doc: map[string]any{
				"isValidClarification": true,
				"personalizedPitch": func() map[string]any {
					p := validPitch()
					p["process"] = "step one then step two"
					return p
				}(),
			},
			wantCode: CodeClarifyInvalidProcess,
		},
		{
			name: "mission entry not an object",
			doc: map[string]any{
				"isValidClarification": true,
				"personalizedPitch": func() map[string]any {
					p := validPitch()
					p["missions"] = []any{"do the thing"}
					return p
				}(),
			},
			wantCode:    CodeClarifyBadMissionFormat,
			wantMessage: "Mission 1 has invalid format",
		},
		{
			name: "second mission missing fields is 1-indexed",
			doc: map[string]any{
				"isValidClarification": true,
				"personalizedPitch": func() map[string]any {
					p := validPitch()
					p["missions"] = []any{
						map[string]any{"id": "m1", "title": "ok", "points": float64(10)},
						map[string]any{"id": "m2"},
					}
					return p
				}(),
			},
			wantCode:    CodeClarifyIncompleteMission,
			wantMessage: "Mission 2 missing required fields: title, points",
		},
		{
			name: "zero points counts as missing",
			doc: map[string]any{
				"isValidClarification": true,
				"personalizedPitch": func() map[string]any {
					p := validPitch()
					p["missions"] = []any{
						map[string]any{"id": "m1", "title": "ok", "points": float64(0)},
					}
					return p
				}(),
			},
			wantCode: CodeClarifyIncompleteMission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateClarify(tt.doc)
			cerr := asContractError(t, err)
			if cerr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", cerr.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && cerr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", cerr.Message, tt.wantMessage)
			}
		})
	}
}

func TestValidateClarify_Valid(t *testing.T) {
	pitch, err := ValidateClarify(map[string]any{
		"isValidClarification": true,
		"personalizedPitch":    validPitch(),
	})
	if err != nil {
		t.Fatalf("ValidateClarify() error = %v", err)
	}
	if len(pitch["missions"].([]any)) != 2 {
		t.Errorf("pitch missions = %v, want 2 entries", pitch["missions"])
	}
}

func TestValidateClarify_PitchAsJSONString(t *testing.T) {
	encoded := `{"hero":{"title":"t","description":"d"},"process":[{"step":1}],"missions":[{"id":"m1","title":"x","points":10}]}`
	pitch, err := ValidateClarify(map[string]any{
		"isValidClarification": true,
		"personalizedPitch":    encoded,
	})
	if err != nil {
		t.Fatalf("ValidateClarify() error = %v", err)
	}
	hero, ok := pitch["hero"].(map[string]any)
	if !ok || hero["title"] != "t" {
		t.Errorf("pitch hero = %v, want decoded object", pitch["hero"])
	}
}

func TestValidateChat(t *testing.T) {
	if err := ValidateChat(map[string]any{"reply": "hello"}); err != nil {
		t.Fatalf("ValidateChat() error = %v", err)
	}

	for _, doc := range []map[string]any{
		nil,
		{},
		{"reply": ""},
		{"reply": nil},
	} {
		cerr := asContractError(t, ValidateChat(doc))
		if cerr.Code != CodeChatMissingReply {
			t.Errorf("Code = %q, want %q", cerr.Code, CodeChatMissingReply)
		}
		if cerr.RetryAction != ActionRetryOrNewMessage {
			t.Errorf("RetryAction = %q, want %q", cerr.RetryAction, ActionRetryOrNewMessage)
		}
	}
}

func TestDecodeFailure(t *testing.T) {
	cerr := DecodeFailure(CodeChatInvalidJSON)
	if cerr.Code != CodeChatInvalidJSON {
		t.Errorf("Code = %q, want %q", cerr.Code, CodeChatInvalidJSON)
	}
	if cerr.RetryAction != ActionRetryOrRestart {
		t.Errorf("RetryAction = %q, want %q", cerr.RetryAction, ActionRetryOrRestart)
	}
}
