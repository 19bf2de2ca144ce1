//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membridge/membridge/host"
	"github.com/membridge/membridge/remote"
	"github.com/membridge/membridge/state"
	"github.com/membridge/membridge/state/inmemory"
)

func TestSubmitRecordsPendingTask(t *testing.T) {
	conv := conversationWithMessages(6)
	client := &fakeClient{memorizeResp: &remote.MemorizeResponse{TaskID: "t7", Status: "PENDING"}}
	c, store := newTestCoordinator(t, conv, client)

	require.NoError(t, c.Submit(context.Background(), 0, 5))

	st := loadState(t, store, conv.id)
	require.NotNil(t, st.Summary)
	assert.Equal(t, "t7", st.Summary.TaskID)
	assert.Equal(t, state.TaskPending, st.Summary.Status)
	assert.Equal(t, state.Range{From: 0, To: 5}, st.Summary.Range)
	assert.False(t, st.Summary.IsReady)
}

func TestSubmitFailureRecordsTaskWithoutHandle(t *testing.T) {
	conv := conversationWithMessages(6)
	client := &fakeClient{memorizeErr: errors.New("connection refused")}
	c, store := newTestCoordinator(t, conv, client)

	require.NoError(t, c.Submit(context.Background(), 0, 5), "transport failure is recorded, not returned")

	st := loadState(t, store, conv.id)
	require.NotNil(t, st.Summary)
	assert.Empty(t, st.Summary.TaskID)
	assert.Equal(t, state.TaskFailure, st.Summary.Status)
	assert.Equal(t, state.Range{From: 0, To: 5}, st.Summary.Range)
}

func TestSubmitSendsFullTranscriptAndIdentity(t *testing.T) {
	conv := conversationWithMessages(6)
	client := &fakeClient{}
	c, store := newTestCoordinator(t, conv, client)

	// The submitted range is bookkeeping; the request always carries
	// the whole live transcript.
	require.NoError(t, c.Submit(context.Background(), 2, 5))

	req := client.lastMemorize
	require.NotNil(t, req)
	assert.Len(t, req.Conversation, 6)

	bi := loadState(t, store, conv.id).BaseInfo
	assert.Equal(t, bi.UserID, req.UserID)
	assert.Equal(t, bi.UserName, req.UserName)
	assert.Equal(t, bi.AgentID, req.AgentID)
	assert.Equal(t, bi.AgentName, req.AgentName)
}

func TestSubmitWithoutBaseInfoSkips(t *testing.T) {
	conv := conversationWithMessages(6)
	client := &fakeClient{}
	c, err := New(conv, inmemory.NewStore(), client, testCredentials(),
		WithRunner(func(fn func()) { fn() }))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	require.NoError(t, c.Submit(context.Background(), 0, 5))

	memorize, _, _, _ := client.counts()
	assert.Equal(t, 0, memorize)
}

func TestProjectTranscriptRoles(t *testing.T) {
	conv := &fakeConversation{
		id: "conv-roles", userName: "Alice", agentName: "Seraphina",
		msgs: []host.Message{
			{Index: 0, Name: "Alice", Content: "hi there", IsUser: true},
			{Index: 1, Name: "Seraphina", Content: "hello"},
			{Index: 2, Name: "narrator", Content: "scene note", IsSystem: true},
			{Index: 3, Name: "Bob", Content: "mind if I join?", IsUser: true},
			{Index: 4, Name: "Seraphina", Content: "welcome"},
		},
	}

	got := projectTranscript(conv)
	require.Len(t, got, 4, "system messages are excluded")

	assert.Equal(t, remote.ConversationMessage{Role: remote.RoleUser, Content: "hi there"}, got[0])
	assert.Equal(t, remote.ConversationMessage{Role: remote.RoleAssistant, Content: "hello"}, got[1])
	assert.Equal(t, remote.ConversationMessage{Role: remote.RoleParticipant, Content: "mind if I join?", Name: "Bob"}, got[2])
	assert.Equal(t, remote.ConversationMessage{Role: remote.RoleAssistant, Content: "welcome"}, got[3])
}
