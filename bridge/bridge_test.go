//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membridge/membridge/host"
	"github.com/membridge/membridge/remote"
	"github.com/membridge/membridge/state"
	"github.com/membridge/membridge/state/inmemory"
)

// fakeConversation is a static host.Conversation for tests.
type fakeConversation struct {
	id         string
	msgs       []host.Message
	maxContext int
	userName   string
	agentName  string
}

func (f *fakeConversation) ID() string               { return f.id }
func (f *fakeConversation) Messages() []host.Message { return f.msgs }
func (f *fakeConversation) MessageCount() int        { return len(f.msgs) }
func (f *fakeConversation) MaxContextTokens() int    { return f.maxContext }
func (f *fakeConversation) UserName() string         { return f.userName }
func (f *fakeConversation) AgentName() string        { return f.agentName }

func conversationWithMessages(n int) *fakeConversation {
	conv := &fakeConversation{id: "conv-1", userName: "User", agentName: "Agent"}
	for i := 0; i < n; i++ {
		name := "Agent"
		isUser := i%2 == 0
		if isUser {
			name = "User"
		}
		conv.msgs = append(conv.msgs, host.Message{
			Index: i, Name: name, Content: "message content", IsUser: isUser,
		})
	}
	return conv
}

// fakeClient is a scriptable RemoteClient recording call counts.
type fakeClient struct {
	mu sync.Mutex

	memorizeCalls   int
	statusCalls     int
	readyCalls      int
	categoriesCalls int

	memorizeResp   *remote.MemorizeResponse
	memorizeErr    error
	statusResp     *remote.TaskStatusResponse
	statusErr      error
	readyResp      *remote.SummaryReadyResponse
	readyErr       error
	categoriesResp *remote.DefaultCategoriesResponse
	categoriesErr  error

	lastMemorize *remote.MemorizeRequest
}

func (f *fakeClient) Memorize(_ context.Context, req *remote.MemorizeRequest) (*remote.MemorizeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memorizeCalls++
	f.lastMemorize = req
	if f.memorizeErr != nil {
		return nil, f.memorizeErr
	}
	if f.memorizeResp != nil {
		return f.memorizeResp, nil
	}
	return &remote.MemorizeResponse{TaskID: "t1", Status: "PENDING"}, nil
}

func (f *fakeClient) TaskStatus(_ context.Context, taskID string) (*remote.TaskStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.statusResp != nil {
		return f.statusResp, nil
	}
	return &remote.TaskStatusResponse{TaskID: taskID, Status: "PENDING"}, nil
}

func (f *fakeClient) SummaryReady(_ context.Context, taskID, _ string) (*remote.SummaryReadyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalls++
	if f.readyErr != nil {
		return nil, f.readyErr
	}
	if f.readyResp != nil {
		return f.readyResp, nil
	}
	return &remote.SummaryReadyResponse{AllReady: false}, nil
}

func (f *fakeClient) DefaultCategories(_ context.Context, _ *remote.DefaultCategoriesRequest) (*remote.DefaultCategoriesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoriesCalls++
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	if f.categoriesResp != nil {
		return f.categoriesResp, nil
	}
	return &remote.DefaultCategoriesResponse{}, nil
}

func (f *fakeClient) counts() (memorize, status, ready, categories int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memorizeCalls, f.statusCalls, f.readyCalls, f.categoriesCalls
}

func testCredentials() host.MemoryCredentials {
	return host.MemoryCredentials{host.CredentialAPIKey: "mk-test"}
}

// newTestCoordinator builds a coordinator over an in-memory store with
// continuations running inline, and persists a base identity.
func newTestCoordinator(t *testing.T, conv *fakeConversation, client *fakeClient, opts ...Option) (*Coordinator, *inmemory.Store) {
	t.Helper()
	store := inmemory.NewStore()
	opts = append([]Option{WithRunner(func(fn func()) { fn() })}, opts...)
	c, err := New(conv, store, client, testCredentials(), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	require.NoError(t, c.EnsureBaseInfo(context.Background()))
	return c, store
}

func loadState(t *testing.T, store *inmemory.Store, conversationID string) *state.MemoryState {
	t.Helper()
	st, err := store.Load(context.Background(), conversationID)
	require.NoError(t, err)
	return st
}

func TestNewValidation(t *testing.T) {
	conv := conversationWithMessages(1)
	store := inmemory.NewStore()
	client := &fakeClient{}

	_, err := New(nil, store, client, nil)
	assert.ErrorIs(t, err, host.ErrConversationRequired)
	_, err = New(conv, nil, client, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = New(conv, store, nil, nil)
	assert.ErrorIs(t, err, ErrClientRequired)
}

func TestEnsureBaseInfoImmutable(t *testing.T) {
	conv := conversationWithMessages(2)
	c, store := newTestCoordinator(t, conv, &fakeClient{})

	st := loadState(t, store, conv.id)
	require.NotNil(t, st.BaseInfo)
	assert.Equal(t, "User", st.BaseInfo.UserName)
	assert.Equal(t, "Agent", st.BaseInfo.AgentName)
	assert.NotEmpty(t, st.BaseInfo.UserID)
	assert.NotEmpty(t, st.BaseInfo.AgentID)

	first := *st.BaseInfo
	require.NoError(t, c.EnsureBaseInfo(context.Background()))
	st = loadState(t, store, conv.id)
	assert.Equal(t, first, *st.BaseInfo, "base info must not change once set")
}

func TestCommitIfDiscardsStaleWrites(t *testing.T) {
	conv := conversationWithMessages(2)
	c, store := newTestCoordinator(t, conv, &fakeClient{})
	ctx := context.Background()

	st := loadState(t, store, conv.id)
	readSeq := st.Seq

	// A newer write lands first.
	require.NoError(t, c.commit(ctx, func(st *state.MemoryState) {
		st.Summary = &state.SummaryTask{TaskID: "newer", Status: state.TaskPending}
	}))

	applied, err := c.commitIf(ctx, readSeq, func(st *state.MemoryState) {
		st.Summary = &state.SummaryTask{TaskID: "stale", Status: state.TaskFailure}
	})
	require.NoError(t, err)
	assert.False(t, applied)

	st = loadState(t, store, conv.id)
	assert.Equal(t, "newer", st.Summary.TaskID)
}

func TestManagerActivateSwitchesPoller(t *testing.T) {
	store := inmemory.NewStore()
	client := &fakeClient{}
	m, err := NewManager(store, client, testCredentials())
	require.NoError(t, err)
	defer m.Close()

	conv1 := conversationWithMessages(2)
	conv2 := conversationWithMessages(2)
	conv2.id = "conv-2"

	c1, err := m.Activate(context.Background(), conv1)
	require.NoError(t, err)
	assert.True(t, c1.poller.Running())

	c2, err := m.Activate(context.Background(), conv2)
	require.NoError(t, err)
	assert.False(t, c1.poller.Running(), "previous conversation's poller must stop")
	assert.True(t, c2.poller.Running())

	// Re-activating returns the same coordinator and restarts it.
	c1again, err := m.Activate(context.Background(), conv1)
	require.NoError(t, err)
	assert.Same(t, c1, c1again)
	assert.True(t, c1.poller.Running())
	assert.False(t, c2.poller.Running())

	m.Deactivate()
	assert.False(t, c1.poller.Running())
}

func TestManagerValidation(t *testing.T) {
	client := &fakeClient{}
	_, err := NewManager(nil, client, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewManager(inmemory.NewStore(), nil, nil)
	assert.ErrorIs(t, err, ErrClientRequired)
}
