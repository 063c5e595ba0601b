// Package session owns the authoritative chat transcript, the current
// session identity, and the optimistic-echo reconciliation algorithm.
//
// Three independently-arriving data sources meet here: the local echo of
// a just-sent message, the persisted transcript returned by the server,
// and an audit verdict that may ride on the response or inside message
// metadata. Reconciliation is deliberately blunt: a successful submit
// ends with a full history reload that REPLACES the in-memory list, which
// drops the provisional echo because the server's copy never carries a
// local id.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
	"github.com/Ramjan-Shaikh/trustaudit/internal/audit"
	"github.com/Ramjan-Shaikh/trustaudit/internal/logger"
)

// FSM states. One machine per store instance.
type StoreState = stateless.State

var (
	StateIdle       StoreState = "Idle"
	StateSubmitting StoreState = "Submitting"
	StateError      StoreState = "Error"
)

// FSM triggers.
type storeTrigger = stateless.Trigger

var (
	triggerSubmit    storeTrigger = "Submit"
	triggerSucceeded storeTrigger = "Succeeded"
	triggerFailed    storeTrigger = "Failed"
	triggerReset     storeTrigger = "Reset"
)

// Local rejections, reported before any network call.
var (
	ErrEmptySubmission = errors.New("session: cannot submit blank text")
	ErrSubmitInFlight  = errors.New("session: a submission is already in flight")
	// ErrSuperseded is returned when a submit completes after the session
	// was cleared or switched; its results are discarded entirely.
	ErrSuperseded = errors.New("session: submission superseded")
)

// ErrorTag prefixes the synthetic assistant message appended when a
// submit fails at the network layer. Such messages are local-only: never
// retried, never sent to the server.
const ErrorTag = "[ERROR]"

// Client is the slice of the API gateway the store depends on.
type Client interface {
	Execute(ctx context.Context, prompt, sessionID string) (*api.ExecuteResponse, error)
	History(ctx context.Context, sessionID string, limit int) ([]api.Message, error)
	ClearHistory(ctx context.Context, sessionID string) (*api.ClearHistoryResponse, error)
}

// Store is the chat session store. All mutation goes through its
// operations; views observe it through Subscribe.
type Store struct {
	client       Client
	historyLimit int

	fsm *stateless.StateMachine

	mu        sync.Mutex
	messages  []api.Message
	sessionID string
	// epoch increments on Clear and on session switches. A submit records
	// the epoch it started under and discards its results when the store
	// has moved on, so a cleared transcript is never resurrected.
	epoch int

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New creates a store. historyLimit bounds every transcript reload.
func New(client Client, historyLimit int) *Store {
	s := &Store{
		client:       client,
		historyLimit: historyLimit,
		subs:         make(map[int]func()),
	}

	fsm := stateless.NewStateMachine(StateIdle)
	fsm.Configure(StateIdle).
		Permit(triggerSubmit, StateSubmitting)
	fsm.Configure(StateSubmitting).
		Permit(triggerSucceeded, StateIdle).
		Permit(triggerFailed, StateError)
	fsm.Configure(StateError).
		Permit(triggerSubmit, StateSubmitting).
		Permit(triggerReset, StateIdle)
	s.fsm = fsm

	return s
}

// State returns the current store state (Idle, Submitting or Error).
func (s *Store) State() StoreState {
	return s.fsm.MustState()
}

// Subscribe registers fn to run after every state-changing operation.
// The returned func unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SessionID returns the current session id; empty until the first server
// response assigns one.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Messages returns a snapshot copy of the transcript.
func (s *Store) Messages() []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Filter returns messages whose content contains query, case-insensitive.
// Pure: stored state is not mutated; a blank query returns the unfiltered
// list unchanged so callers that diff by reference skip a re-render.
func (s *Store) Filter(query string) []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if query == "" {
		return s.messages
	}
	q := strings.ToLower(query)
	var out []api.Message
	for _, m := range s.messages {
		if strings.Contains(strings.ToLower(m.Content), q) {
			out = append(out, m)
		}
	}
	return out
}

// LoadHistory fetches the authoritative transcript and REPLACES the
// in-memory list. The current session id is re-derived from the last
// message, if any. This total-replace policy is the single mechanism that
// resolves the optimistic-echo race.
func (s *Store) LoadHistory(ctx context.Context, sessionID string, limit int) ([]api.Message, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	msgs, err := s.client.History(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.messages = msgs
	if n := len(msgs); n > 0 && msgs[n-1].SessionID != "" {
		s.sessionID = msgs[n-1].SessionID
	}
	s.mu.Unlock()
	s.notify()
	return msgs, nil
}

// Submit sends one user turn. At most one submit may be outstanding per
// store; a concurrent call is rejected, not queued. On success the
// returned message is the persisted assistant answer and the audit is the
// verdict extracted from the response (top-level field preferred over one
// nested in result metadata).
func (s *Store) Submit(ctx context.Context, text string) (*api.Message, *api.AuditResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil, ErrEmptySubmission
	}
	// The FSM is the single-flight gate: Submit is only permitted from
	// Idle and Error.
	if err := s.fsm.Fire(triggerSubmit); err != nil {
		return nil, nil, ErrSubmitInFlight
	}

	s.mu.Lock()
	epoch := s.epoch
	sessionID := s.sessionID
	echo := api.Message{
		ID:        api.MessageID(api.LocalIDPrefix + uuid.NewString()),
		Role:      api.RoleUser,
		Content:   trimmed,
		Timestamp: api.Time{Time: time.Now()},
		SessionID: sessionID,
	}
	s.messages = append(s.messages, echo)
	s.mu.Unlock()
	s.notify()

	resp, err := s.client.Execute(ctx, trimmed, sessionID)
	if err != nil {
		return nil, nil, s.failSubmit(epoch, err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		_ = s.fsm.Fire(triggerSucceeded)
		return nil, nil, ErrSuperseded
	}
	if resp.SessionID != "" {
		s.sessionID = resp.SessionID
	}
	current := s.sessionID
	s.mu.Unlock()

	verdict := extractAudit(resp)

	// Authoritative reload: replaces the echo with the server's copy. A
	// reload failure is not a submit failure; the answer is still known.
	reloaded, loadErr := s.LoadHistory(ctx, current, s.historyLimit)
	if loadErr != nil {
		logger.L.Warn("post-submit history reload failed", "error", loadErr)
	}

	_ = s.fsm.Fire(triggerSucceeded)

	if answer := lastAssistant(reloaded); answer != nil {
		return answer, verdict, nil
	}
	fallback := &api.Message{
		ID:        resp.MessageID,
		Role:      api.RoleAssistant,
		Content:   resp.Result.Content,
		Timestamp: api.Time{Time: time.Now()},
		SessionID: current,
	}
	return fallback, verdict, nil
}

// failSubmit appends the synthetic in-transcript error entry and moves
// the FSM to Error. When the store was cleared mid-flight the entry is
// suppressed so cleared state is not resurrected.
func (s *Store) failSubmit(epoch int, cause error) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		_ = s.fsm.Fire(triggerFailed)
		return ErrSuperseded
	}
	s.messages = append(s.messages, api.Message{
		ID:        api.MessageID(api.LocalIDPrefix + uuid.NewString()),
		Role:      api.RoleAssistant,
		Content:   ErrorTag + " " + cause.Error(),
		Timestamp: api.Time{Time: time.Now()},
		SessionID: s.sessionID,
	})
	s.mu.Unlock()
	_ = s.fsm.Fire(triggerFailed)
	s.notify()
	return cause
}

// Clear deletes history for sessionID (or everything when empty) and
// resets local state. Destructive confirmation is the caller's concern.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.client.ClearHistory(ctx, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = nil
	s.sessionID = ""
	s.epoch++
	s.mu.Unlock()
	if s.fsm.MustState() == StateError {
		_ = s.fsm.Fire(triggerReset)
	}
	s.notify()
	return nil
}

// Switch makes sessionID current and reloads its transcript. Any
// in-flight submit against the previous session is superseded.
func (s *Store) Switch(ctx context.Context, sessionID string) ([]api.Message, error) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.epoch++
	s.mu.Unlock()
	return s.LoadHistory(ctx, sessionID, s.historyLimit)
}

// extractAudit prefers a top-level audit field, then one nested in the
// result's metadata blob.
func extractAudit(resp *api.ExecuteResponse) *api.AuditResult {
	if resp.Audit != nil {
		return resp.Audit
	}
	if resp.Result.Metadata == "" {
		return nil
	}
	return audit.ExtractFromMessage(api.Message{Metadata: resp.Result.Metadata})
}

func lastAssistant(msgs []api.Message) *api.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == api.RoleAssistant {
			m := msgs[i]
			return &m
		}
	}
	return nil
}
