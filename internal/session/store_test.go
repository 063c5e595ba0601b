package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
)

// mockClient mirrors the Client interface with injectable funcs, backed
// by a tiny in-memory "server" transcript.
type mockClient struct {
	mu       sync.Mutex
	persist  []api.Message
	nextID   int
	session  string
	audit    *api.AuditResult
	resultMD string

	executeErr  error
	historyErr  error
	clearErr    error
	executeGate chan struct{} // when set, Execute blocks until closed

	executeCalls int
	historyCalls int
}

func newMockClient() *mockClient {
	return &mockClient{nextID: 1, session: "sess-1"}
}

func (m *mockClient) Execute(ctx context.Context, prompt, sessionID string) (*api.ExecuteResponse, error) {
	if m.executeGate != nil {
		<-m.executeGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executeCalls++
	if m.executeErr != nil {
		return nil, m.executeErr
	}
	sid := sessionID
	if sid == "" {
		sid = m.session
	}
	answer := "answer to " + prompt
	m.persist = append(m.persist,
		api.Message{ID: m.mintID(), Role: api.RoleUser, Content: prompt, SessionID: sid},
		api.Message{ID: m.mintID(), Role: api.RoleAssistant, Content: answer, SessionID: sid, Metadata: m.resultMD},
	)
	return &api.ExecuteResponse{
		Result:    api.ResultNode{ID: "r1", Type: "result", Content: answer, Metadata: m.resultMD},
		Audit:     m.audit,
		SessionID: sid,
		MessageID: m.persist[len(m.persist)-1].ID,
	}, nil
}

func (m *mockClient) mintID() api.MessageID {
	id := api.MessageID(strconv.Itoa(m.nextID))
	m.nextID++
	return id
}

func (m *mockClient) History(ctx context.Context, sessionID string, limit int) ([]api.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	out := make([]api.Message, len(m.persist))
	copy(out, m.persist)
	return out, nil
}

func (m *mockClient) ClearHistory(ctx context.Context, sessionID string) (*api.ClearHistoryResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return nil, m.clearErr
	}
	n := len(m.persist)
	m.persist = nil
	return &api.ClearHistoryResponse{Deleted: n, Message: fmt.Sprintf("Deleted %d message(s)", n)}, nil
}

func floatPtr(f float64) *float64 { return &f }

func TestSubmit_EchoSupersededByReload(t *testing.T) {
	client := newMockClient()
	client.audit = &api.AuditResult{Verdict: api.VerdictPass, Confidence: floatPtr(0.9)}
	store := New(client, 100)

	answer, verdict, err := store.Submit(context.Background(), "Summarize X")
	require.NoError(t, err)
	require.Equal(t, api.RoleAssistant, answer.Role)
	require.Equal(t, "answer to Summarize X", answer.Content)
	require.Equal(t, api.VerdictPass, verdict.Verdict)
	require.Equal(t, "sess-1", store.SessionID())
	require.Equal(t, StateIdle, store.State())

	for _, m := range store.Messages() {
		require.False(t, m.ID.IsLocal(), "no temporary-id echo may survive a completed submit, got %s", m.ID)
	}
	require.Len(t, store.Messages(), 2)
}

func TestSubmit_AuditFallsBackToResultMetadata(t *testing.T) {
	client := newMockClient()
	client.resultMD = `{"result_id":"r1","audit":{"verdict":"revise","confidence":0.5}}`
	store := New(client, 100)

	_, verdict, err := store.Submit(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, verdict)
	require.Equal(t, api.VerdictRevise, verdict.Verdict)
}

func TestSubmit_TopLevelAuditWinsOverMetadata(t *testing.T) {
	client := newMockClient()
	client.audit = &api.AuditResult{Verdict: api.VerdictPass}
	client.resultMD = `{"audit":{"verdict":"fail"}}`
	store := New(client, 100)

	_, verdict, err := store.Submit(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, api.VerdictPass, verdict.Verdict)
}

func TestSubmit_BlankRejectedBeforeNetwork(t *testing.T) {
	client := newMockClient()
	store := New(client, 100)

	_, _, err := store.Submit(context.Background(), "   \n")
	require.ErrorIs(t, err, ErrEmptySubmission)
	require.Zero(t, client.executeCalls)
	require.Empty(t, store.Messages())
	require.Equal(t, StateIdle, store.State())
}

func TestSubmit_SingleFlight(t *testing.T) {
	client := newMockClient()
	client.executeGate = make(chan struct{})
	store := New(client, 100)

	done := make(chan error, 1)
	go func() {
		_, _, err := store.Submit(context.Background(), "first")
		done <- err
	}()

	// Wait for the first submit to take the gate.
	require.Eventually(t, func() bool {
		return store.State() == StateSubmitting
	}, time.Second, time.Millisecond)

	_, _, err := store.Submit(context.Background(), "second")
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(client.executeGate)
	require.NoError(t, <-done)
	require.Equal(t, StateIdle, store.State())
}

func TestSubmit_NetworkFailureAppendsOneTaggedMessage(t *testing.T) {
	client := newMockClient()
	client.executeErr = errors.New("connection refused")
	store := New(client, 100)

	_, _, err := store.Submit(context.Background(), "hello")
	require.Error(t, err)
	require.Equal(t, StateError, store.State())

	msgs := store.Messages()
	require.Len(t, msgs, 2) // echo + error entry
	last := msgs[len(msgs)-1]
	require.Equal(t, api.RoleAssistant, last.Role)
	require.Contains(t, last.Content, ErrorTag)
	require.Contains(t, last.Content, "connection refused")
	require.Zero(t, client.historyCalls, "a failed submit must not touch the persisted transcript")

	// A new submit is permitted from the error state.
	client.executeErr = nil
	_, _, err = store.Submit(context.Background(), "retry")
	require.NoError(t, err)
	require.Equal(t, StateIdle, store.State())
}

func TestClear_ThenLoadHistoryYieldsEmpty(t *testing.T) {
	client := newMockClient()
	store := New(client, 100)

	_, _, err := store.Submit(context.Background(), "hello")
	require.NoError(t, err)
	require.NotEmpty(t, store.Messages())

	require.NoError(t, store.Clear(context.Background(), "sess-1"))
	require.Empty(t, store.Messages())
	require.Empty(t, store.SessionID())

	msgs, err := store.LoadHistory(context.Background(), "sess-1", 100)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestClear_DuringSubmitDiscardsStaleResponse(t *testing.T) {
	client := newMockClient()
	client.executeGate = make(chan struct{})
	store := New(client, 100)

	done := make(chan error, 1)
	go func() {
		_, _, err := store.Submit(context.Background(), "slow question")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return store.State() == StateSubmitting
	}, time.Second, time.Millisecond)

	// Clearing mid-flight must not let the outstanding submit resurrect
	// state. Clear talks to the mock directly; gate only blocks Execute.
	require.NoError(t, store.Clear(context.Background(), ""))
	close(client.executeGate)

	require.ErrorIs(t, <-done, ErrSuperseded)
	require.Empty(t, store.Messages())
	require.Empty(t, store.SessionID())
}

func TestLoadHistory_TotalReplaceAndSessionDerivation(t *testing.T) {
	client := newMockClient()
	client.persist = []api.Message{
		{ID: "1", Role: api.RoleUser, Content: "q", SessionID: "sess-9"},
		{ID: "2", Role: api.RoleAssistant, Content: "a", SessionID: "sess-9"},
	}
	store := New(client, 100)

	msgs, err := store.LoadHistory(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "sess-9", store.SessionID())
}

func TestFilter_Semantics(t *testing.T) {
	client := newMockClient()
	client.persist = []api.Message{
		{ID: "1", Role: api.RoleUser, Content: "Tell me about Go", SessionID: "s"},
		{ID: "2", Role: api.RoleAssistant, Content: "Go is a language", SessionID: "s"},
		{ID: "3", Role: api.RoleUser, Content: "and Rust?", SessionID: "s"},
	}
	store := New(client, 100)
	_, err := store.LoadHistory(context.Background(), "", 0)
	require.NoError(t, err)

	matched := store.Filter("GO")
	require.Len(t, matched, 2)

	// Blank query returns the unfiltered list with stable reference
	// semantics: both calls see the same backing array.
	a := store.Filter("")
	b := store.Filter("")
	require.Len(t, a, 3)
	require.Same(t, &a[0], &b[0])

	// Filtering never mutates stored state.
	require.Len(t, store.Messages(), 3)
}

func TestSubscribe_NotifiesAndUnsubscribes(t *testing.T) {
	client := newMockClient()
	store := New(client, 100)

	var mu sync.Mutex
	count := 0
	unsub := store.Subscribe(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	_, _, err := store.Submit(context.Background(), "hello")
	require.NoError(t, err)
	mu.Lock()
	seen := count
	mu.Unlock()
	require.GreaterOrEqual(t, seen, 2) // echo append + reload

	unsub()
	require.NoError(t, store.Clear(context.Background(), ""))
	mu.Lock()
	require.Equal(t, seen, count)
	mu.Unlock()
}
