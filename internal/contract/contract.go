// Package contract validates the JSON payloads the language model must
// return for each conversation flow. A payload that decodes but fails the
// schema is reported with a machine-readable code and a recovery hint so
// callers can decide between resubmitting, restarting, or waiting.
package contract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Recovery hints surfaced to callers alongside every validation failure.
const (
	ActionRetry             = "retry"
	ActionRestart           = "restart"
	ActionRestartOrRetry    = "restart_or_retry"
	ActionRetryOrRestart    = "retry_or_restart"
	ActionRetryOrNewMessage = "retry_or_new_message"
)

// Error codes for goal payload validation.
const (
	CodeGoalEmptyResponse  = "GOAL_EMPTY_RESPONSE"
	CodeGoalInvalid        = "GOAL_INVALID"
	CodeGoalMissingClarify = "GOAL_MISSING_CLARIFICATION"
	CodeGoalInvalidJSON    = "GOAL_INVALID_JSON"
)

// Error codes for clarify payload validation.
const (
	CodeClarifyInvalidPayload    = "CLARIFY_INVALID_PAYLOAD"
	CodeClarifyInvalid           = "CLARIFY_INVALID"
	CodeClarifyInvalidPitch      = "CLARIFY_INVALID_PITCH"
	CodeClarifyMissingPitch      = "CLARIFY_MISSING_PITCH"
	CodeClarifyIncomplete        = "CLARIFY_INCOMPLETE_RESPONSE"
	CodeClarifyInvalidHero       = "CLARIFY_INVALID_HERO"
	CodeClarifyInvalidProcess    = "CLARIFY_INVALID_PROCESS"
	CodeClarifyInvalidMissions   = "CLARIFY_INVALID_MISSIONS"
	CodeClarifyBadMissionFormat  = "CLARIFY_INVALID_MISSION_FORMAT"
	CodeClarifyIncompleteMission = "CLARIFY_INCOMPLETE_MISSION"
	CodeClarifyInvalidJSON       = "CLARIFY_INVALID_JSON"
)

// Error codes for chat payload validation.
const (
	CodeChatMissingReply = "CHAT_MISSING_REPLY"
	CodeChatInvalidJSON  = "CHAT_INVALID_JSON"
)

// Error carries the full validation failure triple. The API layer maps it
// to a 422 response with all three fields intact.
type Error struct {
	Message     string
	Code        string
	RetryAction string
}

func (e *Error) Error() string {
	return fmt.Sprintf("contract: %s (%s)", e.Message, e.Code)
}

func newError(message, code, retryAction string) *Error {
	return &Error{Message: message, Code: code, RetryAction: retryAction}
}

// DecodeFailure reports a response that was not valid JSON at all, which
// is a different condition from a well-formed payload missing fields.
// flowCode is one of the *_INVALID_JSON codes.
func DecodeFailure(flowCode string) *Error {
	return newError("AI response was not valid JSON", flowCode, ActionRetryOrRestart)
}

// truthy mirrors loose presence checks: nil, false, empty strings, zero
// numbers, and empty collections all count as absent.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case json.Number:
		return val.String() != "0" && val.String() != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// nonBlankString reports whether v is a string with visible content.
func nonBlankString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// ValidateGoal checks a goal-flow payload. The model must confirm the
// goal with isValidGoal == true and supply a clarification question.
func ValidateGoal(doc map[string]any) error {
	if len(doc) == 0 {
		return newError("Empty response from AI service", CodeGoalEmptyResponse, ActionRestartOrRetry)
	}

	if doc["isValidGoal"] != true {
		message, ok := nonBlankString(doc["errorMessage"])
		if !ok {
			message = "Goal did not meet minimum specificity requirements."
		}
		return newError(message, CodeGoalInvalid, ActionRetry)
	}

	if _, ok := nonBlankString(doc["clarificationQuestion"]); !ok {
		return newError("AI response missing clarification question", CodeGoalMissingClarify, ActionRestartOrRetry)
	}
	return nil
}

// ValidateClarify checks a clarify-flow payload and returns the embedded
// personalized pitch. The pitch may arrive as an object or as a
// JSON-encoded string; both forms normalize to the same map.
func ValidateClarify(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return nil, newError("Invalid response format from AI service", CodeClarifyInvalidPayload, ActionRetryOrRestart)
	}

	if doc["isValidClarification"] != true {
		message, ok := nonBlankString(doc["errorMessage"])
		if !ok {
			message = "Clarification did not meet the required specificity."
		}
		return nil, newError(message, CodeClarifyInvalid, ActionRetry)
	}

	pitchValue := doc["personalizedPitch"]
	if encoded, ok := pitchValue.(string); ok {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
			return nil, newError("Invalid personalized pitch format from AI service", CodeClarifyInvalidPitch, ActionRetryOrRestart)
		}
		pitchValue = decoded
	}
	pitch, ok := pitchValue.(map[string]any)
	if !ok {
		return nil, newError("Clarification response missing personalized pitch", CodeClarifyMissingPitch, ActionRetryOrRestart)
	}

	var missing []string
	for _, field := range []string{"hero", "process", "missions"} {
		if !truthy(pitch[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, newError(
			"Incomplete AI response - missing: "+strings.Join(missing, ", "),
			CodeClarifyIncomplete, ActionRetryOrRestart)
	}

	hero, ok := pitch["hero"].(map[string]any)
	if !ok || !truthy(hero["title"]) || !truthy(hero["description"]) {
		return nil, newError("Invalid hero section in AI response", CodeClarifyInvalidHero, ActionRetryOrRestart)
	}

	process, ok := pitch["process"].([]any)
	if !ok || len(process) == 0 {
		return nil, newError("Invalid or empty process section in AI response", CodeClarifyInvalidProcess, ActionRetryOrRestart)
	}

	missions, ok := pitch["missions"].([]any)
	if !ok || len(missions) == 0 {
		return nil, newError("Invalid or empty missions section in AI response", CodeClarifyInvalidMissions, ActionRetryOrRestart)
	}
	for i, entry := range missions {
		mission, ok := entry.(map[string]any)
		if !ok {
			return nil, newError(
				fmt.Sprintf("Mission %d has invalid format", i+1),
				CodeClarifyBadMissionFormat, ActionRetryOrRestart)
		}
		var missingFields []string
		for _, field := range []string{"id", "title", "points"} {
			if !truthy(mission[field]) {
				missingFields = append(missingFields, field)
			}
		}
		if len(missingFields) > 0 {
			return nil, newError(
				fmt.Sprintf("Mission %d missing required fields: %s", i+1, strings.Join(missingFields, ", ")),
				CodeClarifyIncompleteMission, ActionRetryOrRestart)
		}
	}

	return pitch, nil
}

// ValidateChat checks a chat-flow payload, which only needs a non-empty
// reply field.
func ValidateChat(doc map[string]any) error {
	if !truthy(doc["reply"]) {
		return newError("AI response missing reply content", CodeChatMissingReply, ActionRetryOrNewMessage)
	}
	return nil
}
