// Package turn sequences the goal → clarify → chat conversation. Each
// turn validates the session phase, assembles the LLM message list,
// validates the response envelope, and persists the exchange — rolling
// back exactly the entries it attempted when persistence fails after a
// successful model call.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chainlabs/questline/internal/cms"
	"github.com/chainlabs/questline/internal/contract"
	"github.com/chainlabs/questline/internal/llm"
	"github.com/chainlabs/questline/internal/models"
	"github.com/chainlabs/questline/internal/progress"
	"github.com/chainlabs/questline/internal/transcript"
)

// Phase-violation and input errors, mapped to 400/404 by the API layer.
var (
	ErrEmptyInput       = errors.New("turn: input is empty")
	ErrGoalAlreadySet   = errors.New("turn: session already has a goal")
	ErrNoGoal           = errors.New("turn: session does not have a goal")
	ErrAlreadyClarified = errors.New("turn: session already clarified")
)

// PersistError reports a failed transcript write after a successful LLM
// call. Count is how many entries the turn attempted to append (and asked
// the store to roll back).
type PersistError struct {
	Count int
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("turn: persisting %d transcript entries failed: %v", e.Count, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// historySkip is how many transcript entries precede free chat: the goal
// triple, the clarify pair, and the one-time follow-up prompt.
const historySkip = 6

// Transcripts is the transcript persistence consumed by the sequencer.
// Append reports how many rows actually committed so a failed turn
// compensates for exactly those, never pre-existing entries.
type Transcripts interface {
	Append(sessionID string, entries []transcript.Entry) (int, error)
	Messages(sessionID string) ([]models.Message, error)
	RollbackLast(sessionID string, n int)
}

// Invoker obtains LLM completions with retry/breaker semantics.
type Invoker interface {
	Invoke(ctx context.Context, flow string, messages []llm.Message) (string, error)
}

// Progress is the reconciler surface the sequencer needs.
type Progress interface {
	ReconcilePitch(sessionID, goal string, pitch map[string]any) (*models.SessionProgress, error)
	Snapshot(sessionID string) (*models.SessionProgress, error)
}

// Phases reads and advances the session phase.
type Phases interface {
	Phase(sessionID string) (string, error)
	Advance(sessionID, from, to string) error
}

// Sequencer drives the conversation state machine.
type Sequencer struct {
	transcripts Transcripts
	invoker     Invoker
	progress    Progress
	phases      Phases
	cms         *cms.Library
	logger      *zap.Logger
}

// NewSequencer creates a Sequencer.
func NewSequencer(transcripts Transcripts, invoker Invoker, prog Progress, phases Phases, library *cms.Library, logger *zap.Logger) (*Sequencer, error) {
	if transcripts == nil || invoker == nil || prog == nil || phases == nil {
		return nil, fmt.Errorf("turn: transcripts, invoker, progress and phases are required")
	}
	if library == nil {
		library = cms.NewLibrary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		transcripts: transcripts,
		invoker:     invoker,
		progress:    prog,
		phases:      phases,
		cms:         library,
		logger:      logger,
	}, nil
}

// HistoryEntry is one plain-role message returned to the client.
type HistoryEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// GoalResult is returned by SubmitGoal.
type GoalResult struct {
	AssistantMessage string
	History          []HistoryEntry
}

// SubmitGoal runs the goal turn. Valid only while the session is in
// NO_GOAL; on success the transcript gains the goal triple and the
// session advances to GOAL_SET.
func (s *Sequencer) SubmitGoal(ctx context.Context, sessionID, userText string) (*GoalResult, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, ErrEmptyInput
	}

	phase, err := s.phases.Phase(sessionID)
	if err != nil {
		return nil, err
	}
	if phase != models.PhaseNoGoal {
		return nil, ErrGoalAlreadySet
	}

	systemPrompt, err := renderGoalPrompt(s.cms.All())
	if err != nil {
		return nil, err
	}
	messages := []llm.Message{llm.System(systemPrompt), llm.User(userText)}

	raw, err := s.invoker.Invoke(ctx, llm.FlowGoal, messages)
	if err != nil {
		return nil, err
	}
	doc, err := llm.DecodeObject(raw)
	if err != nil {
		return nil, contract.DecodeFailure(contract.CodeGoalInvalidJSON)
	}
	if err := contract.ValidateGoal(doc); err != nil {
		return nil, err
	}
	question, _ := doc["clarificationQuestion"].(string)

	entries := []transcript.Entry{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userText},
		{Role: llm.RoleAssistant, Content: question},
	}
	if written, err := s.transcripts.Append(sessionID, entries); err != nil {
		if written > 0 {
			s.transcripts.RollbackLast(sessionID, written)
		}
		return nil, &PersistError{Count: len(entries), Err: err}
	}

	if err := s.phases.Advance(sessionID, models.PhaseNoGoal, models.PhaseGoalSet); err != nil {
		if errors.Is(err, ErrPhaseConflict) {
			return nil, ErrGoalAlreadySet
		}
		return nil, err
	}

	s.logger.Info("goal accepted", zap.String("session_id", sessionID))
	return &GoalResult{
		AssistantMessage: question,
		History: []HistoryEntry{
			{Role: llm.RoleUser, Message: userText},
			{Role: llm.RoleAssistant, Message: question},
		},
	}, nil
}

// Clarify runs the clarify turn. Valid exactly once, from GOAL_SET; on
// success the transcript gains the clarify pair, the session advances to
// CLARIFIED, and the validated pitch is reconciled into progress.
func (s *Sequencer) Clarify(ctx context.Context, sessionID, userText string) (*models.SessionProgress, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, ErrEmptyInput
	}

	phase, err := s.phases.Phase(sessionID)
	if err != nil {
		return nil, err
	}
	switch phase {
	case models.PhaseNoGoal:
		return nil, ErrNoGoal
	case models.PhaseGoalSet:
		// Proceed.
	default:
		return nil, ErrAlreadyClarified
	}

	history, err := s.transcripts.Messages(sessionID)
	if err != nil {
		return nil, err
	}
	clarifyPrompt, err := renderClarifyPrompt(s.cms.All())
	if err != nil {
		return nil, err
	}
	messages := toLLMMessages(history)
	messages = append(messages, llm.System(clarifyPrompt), llm.User(userText))

	raw, err := s.invoker.Invoke(ctx, llm.FlowClarify, messages)
	if err != nil {
		return nil, err
	}
	doc, err := llm.DecodeObject(raw)
	if err != nil {
		return nil, contract.DecodeFailure(contract.CodeClarifyInvalidJSON)
	}
	pitch, err := contract.ValidateClarify(doc)
	if err != nil {
		return nil, err
	}

	entries := []transcript.Entry{
		{Role: llm.RoleUser, Content: userText},
		{Role: llm.RoleAssistant, Content: raw},
	}
	if written, err := s.transcripts.Append(sessionID, entries); err != nil {
		if written > 0 {
			s.transcripts.RollbackLast(sessionID, written)
		}
		return nil, &PersistError{Count: len(entries), Err: err}
	}

	if err := s.phases.Advance(sessionID, models.PhaseGoalSet, models.PhaseClarified); err != nil {
		if errors.Is(err, ErrPhaseConflict) {
			return nil, ErrAlreadyClarified
		}
		return nil, err
	}

	row, err := s.progress.ReconcilePitch(sessionID, goalText(history), pitch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session clarified",
		zap.String("session_id", sessionID),
		zap.Int("missions", len(row.Missions)))
	return row, nil
}

// ChatResult is returned by Chat.
type ChatResult struct {
	Reply            string
	History          []HistoryEntry
	UpdatedProgress  *models.SessionProgress
	FollowUpMissions []string
	SuggestedRead    []models.CaseStudy
	Navigate         map[string]any
}

// Chat runs a free-chat turn. Valid any time after a goal exists. The
// first chat after clarification persists a one-time follow-up system
// prompt and moves the session to FREE_CHAT.
func (s *Sequencer) Chat(ctx context.Context, sessionID, message, page, section string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyInput
	}

	phase, err := s.phases.Phase(sessionID)
	if err != nil {
		return nil, err
	}
	if phase == models.PhaseNoGoal {
		return nil, ErrNoGoal
	}

	row, err := s.progress.Snapshot(sessionID)
	if err != nil && !errors.Is(err, progress.ErrNoProgress) {
		return nil, err
	}
	var missions []models.Mission
	if row != nil {
		missions = row.Missions
	}

	// One-time switch into the free-chat contract. The prompt is
	// persisted immediately so replays of the transcript see it.
	if phase == models.PhaseClarified {
		if _, err := s.transcripts.Append(sessionID, []transcript.Entry{
			{Role: llm.RoleSystem, Content: followupPrompt},
		}); err != nil {
			return nil, &PersistError{Count: 1, Err: err}
		}
		if err := s.phases.Advance(sessionID, models.PhaseClarified, models.PhaseFreeChat); err != nil && !errors.Is(err, ErrPhaseConflict) {
			return nil, err
		}
	}

	history, err := s.transcripts.Messages(sessionID)
	if err != nil {
		return nil, err
	}
	contextPrompt, err := renderContextPrompt(page, section, missions)
	if err != nil {
		return nil, err
	}
	messages := toLLMMessages(history)
	messages = append(messages, llm.System(contextPrompt), llm.User(message))

	raw, err := s.invoker.Invoke(ctx, llm.FlowChat, messages)
	if err != nil {
		return nil, err
	}
	doc, err := llm.DecodeObject(raw)
	if err != nil {
		return nil, contract.DecodeFailure(contract.CodeChatInvalidJSON)
	}
	if err := contract.ValidateChat(doc); err != nil {
		return nil, err
	}
	reply, _ := doc["reply"].(string)

	entries := []transcript.Entry{
		{Role: llm.RoleSystem, Content: contextPrompt},
		{Role: llm.RoleUser, Content: message},
		{Role: llm.RoleAssistant, Content: raw},
	}
	if written, err := s.transcripts.Append(sessionID, entries); err != nil {
		if written > 0 {
			s.transcripts.RollbackLast(sessionID, written)
		}
		return nil, &PersistError{Count: len(entries), Err: err}
	}

	full, err := s.transcripts.Messages(sessionID)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Reply:            reply,
		History:          chatHistory(full),
		UpdatedProgress:  row,
		FollowUpMissions: stringList(doc["followUpMissions"]),
		SuggestedRead:    s.cms.ByIDs(stringList(doc["suggestedRead"])),
		Navigate:         asObject(doc["navigate"]),
	}, nil
}

// History returns the client-facing plain-role history for a session.
func (s *Sequencer) History(sessionID string) ([]HistoryEntry, error) {
	full, err := s.transcripts.Messages(sessionID)
	if err != nil {
		return nil, err
	}
	entries := chatHistory(full)
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// chatHistory reconstructs the plain-role history from the transcript:
// everything after the clarified boundary, system messages stripped,
// assistant entries reduced to their decoded reply field, and the two
// most recent entries excluded so the current turn is not echoed back.
func chatHistory(msgs []models.Message) []HistoryEntry {
	if len(msgs) <= historySkip {
		return nil
	}
	var out []HistoryEntry
	for _, m := range msgs[historySkip:] {
		switch m.Role {
		case llm.RoleUser:
			out = append(out, HistoryEntry{Role: llm.RoleUser, Message: m.Content})
		case llm.RoleAssistant:
			doc, err := llm.DecodeObject(m.Content)
			if err != nil {
				continue
			}
			if reply, ok := doc["reply"].(string); ok {
				out = append(out, HistoryEntry{Role: llm.RoleAssistant, Message: reply})
			}
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out[:len(out)-2]
}

// goalText extracts the user's original goal from the transcript (the
// second entry of the goal triple).
func goalText(msgs []models.Message) string {
	for _, m := range msgs {
		if m.Role == llm.RoleUser {
			return m.Content
		}
	}
	return ""
}

// toLLMMessages converts transcript rows to LLM messages in order.
func toLLMMessages(msgs []models.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asObject(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}
