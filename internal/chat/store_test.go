package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/solanize/solanize-client/internal/apptracker"
	"github.com/solanize/solanize-client/internal/auth"
	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/pkg/gwclient"
	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	fixedNow       = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	fixedTimestamp = "2025-06-10T12:00:00Z"
)

type fakeAuthenticator struct {
	mu       sync.Mutex
	snapshot auth.Snapshot
}

func (f *fakeAuthenticator) Snapshot() auth.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeAuthenticator) set(snapshot auth.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snapshot
}

type storeFixture struct {
	store   *Store
	api     *gwclient.ChatAPIMock
	auth    *fakeAuthenticator
	tracker *apptracker.MockAppTracker
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()

	api := gwclient.NewChatAPIMock(t)
	tracker := apptracker.NewMockAppTracker(t)
	authenticator := &fakeAuthenticator{snapshot: auth.Snapshot{
		State:         auth.StateAuthenticated,
		WalletAddress: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		Epoch:         1,
	}}

	store := NewStore(api, authenticator, tracker, metrics.NewMetricsService(nil))
	store.now = func() time.Time { return fixedNow }

	return &storeFixture{store: store, api: api, auth: authenticator, tracker: tracker}
}

func newSession(id string) types.Session {
	return types.Session{ID: id, Title: "Chat " + id, CreatedAt: "2025-06-01T10:00:00Z", UpdatedAt: "2025-06-01T10:00:00Z"}
}

// seedSessions lists the given sessions into the store, which makes the first one current.
func (f *storeFixture) seedSessions(t *testing.T, ids ...string) {
	t.Helper()

	sessions := make([]types.Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, newSession(id))
	}
	f.api.On("ListSessions", mock.Anything).Return(sessions, nil).Once()
	require.NoError(t, f.store.ListSessions(context.Background()))
}

func plainRequest(content string) types.SendMessageRequest {
	return types.SendMessageRequest{Content: content, Role: types.RoleUser}
}

func reply(userID, content, answer string) *types.SendMessageResponse {
	return &types.SendMessageResponse{
		UserMessage: types.Message{ID: userID, Content: content, Role: types.RoleUser, CreatedAt: "2025-06-10T12:00:01Z"},
		AIMessage:   types.Message{ID: userID + "-reply", Content: answer, Role: types.RoleAssistant, CreatedAt: "2025-06-10T12:00:02Z"},
	}
}

func networkError() *gwclient.APIError {
	return &gwclient.APIError{
		Kind:    gwclient.ErrorKindNetwork,
		Message: "network error while sending message",
		Err:     errors.New("connection refused"),
	}
}

func TestStore_CreateSessionThenSend(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	session := newSession("s1")
	f.api.On("CreateSession", mock.Anything, "Swap SOL").Return(&session, nil).Once()
	resp := reply("m1", "hello", "Hi! How can I help?")
	f.api.On("SendMessage", mock.Anything, "s1", plainRequest("hello")).Return(resp, nil).Once()

	created, err := f.store.CreateSession(ctx, "Swap SOL")
	require.NoError(t, err)
	assert.Equal(t, "s1", created.ID)
	assert.Equal(t, "s1", f.store.CurrentSessionID())

	_, err = f.store.SendMessage(ctx, "s1", "  hello ")
	require.NoError(t, err)

	assert.Equal(t, []types.Message{resp.UserMessage, resp.AIMessage}, f.store.CurrentMessages())
	assert.Empty(t, f.store.OptimisticMessages("s1"))
	assert.Empty(t, f.store.CurrentPendingActions())
	assert.Empty(t, f.store.CurrentPendingTransactions())
	assert.Nil(t, f.store.Err())

	current, ok := f.store.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, fixedTimestamp, current.UpdatedAt)
}

func TestStore_SendMessage_OptimisticEntriesTrackUnresolvedCalls(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	block := func(mock.Arguments) {
		started <- struct{}{}
		<-release
	}
	f.api.On("SendMessage", mock.Anything, "s1", plainRequest("first")).
		Run(block).Return(reply("m1", "first", "one"), nil).Once()
	f.api.On("SendMessage", mock.Anything, "s1", plainRequest("second")).
		Run(block).Return(reply("m2", "second", "two"), nil).Once()

	var wg sync.WaitGroup
	for _, content := range []string{"first", "second"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.SendMessage(ctx, "s1", content)
			assert.NoError(t, err)
		}()
	}

	<-started
	<-started
	assert.Len(t, f.store.OptimisticMessages("s1"), 2)
	assert.True(t, f.store.IsBusy(LoadingSending))
	assert.True(t, f.store.IsLoading())

	release <- struct{}{}
	require.Eventually(t, func() bool { return len(f.store.OptimisticMessages("s1")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, f.store.Messages("s1"), 3)

	release <- struct{}{}
	wg.Wait()
	assert.Empty(t, f.store.OptimisticMessages("s1"))
	assert.Len(t, f.store.Messages("s1"), 4)
	assert.False(t, f.store.IsLoading())
}

func TestStore_SendMessage_NetworkFailure(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")

	req := plainRequest("hello")
	resp := reply("m1", "hello", "Hi!")
	f.api.On("SendMessage", mock.Anything, "s1", req).Return(nil, networkError()).Once()
	f.api.On("SendMessage", mock.Anything, "s1", req).Return(resp, nil).Once()

	_, err := f.store.SendMessage(ctx, "s1", "hello")
	require.Error(t, err)

	var chatErr *Error
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, gwclient.ErrorKindNetwork, chatErr.Kind)
	assert.Equal(t, OpSendMessage, chatErr.Op)
	assert.Equal(t, chatErr, f.store.Err())
	require.NotNil(t, chatErr.Retry)

	messages := f.store.CurrentMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, types.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.True(t, IsOptimistic(messages[0].ID))
	assert.Equal(t, types.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Sorry, I encountered an error: network error while sending message. Please try again.", messages[1].Content)
	assert.True(t, IsOptimistic(messages[1].ID))

	require.NoError(t, chatErr.Retry(ctx))
	f.api.AssertNumberOfCalls(t, "SendMessage", 2)
	assert.Equal(t, []types.Message{resp.UserMessage, resp.AIMessage}, f.store.CurrentMessages())
	assert.Nil(t, f.store.Err())
}

func TestStore_SendMessage_UnknownFailureIsTracked(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")

	boom := errors.New("boom")
	f.api.On("SendMessage", mock.Anything, "s1", plainRequest("hello")).Return(nil, boom).Once()
	f.tracker.On("CaptureException", boom, map[string]string{"chat_op": "send_message"}).Return().Once()

	_, err := f.store.SendMessage(ctx, "s1", "hello")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, gwclient.ErrorKindUnknown, KindOf(err))

	messages := f.store.CurrentMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Sorry, I encountered an error: Failed to send message. Please try again.", messages[1].Content)
}

func TestStore_SendMessage_Rejected(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")

	t.Run("🔴empty_content", func(t *testing.T) {
		_, err := f.store.SendMessage(ctx, "s1", "   ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Empty(t, f.store.OptimisticMessages("s1"))
	})

	t.Run("🔴no_session", func(t *testing.T) {
		_, err := f.store.SendMessage(ctx, "", "hello")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("🔴session_not_created_yet", func(t *testing.T) {
		_, err := f.store.SendMessage(ctx, "temp-session-1", "hello")
		assert.ErrorIs(t, err, ErrSessionNotCreated)
	})
}

func TestStore_Send_CreatesSessionWhenNoneIsCurrent(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	content := "Please send 0.5 SOL to my friend and tell me what the fee is going to be"
	session := newSession("s9")
	f.api.On("CreateSession", mock.Anything, "Please send 0.5 SOL to my friend and tell me what...").Return(&session, nil).Once()
	f.api.On("SendMessage", mock.Anything, "s9", plainRequest(content)).Return(reply("m1", content, "Sure"), nil).Once()

	_, err := f.store.Send(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, "s9", f.store.CurrentSessionID())
	assert.Len(t, f.store.CurrentMessages(), 2)
}

func TestStore_ProposedActions(t *testing.T) {
	ctx := context.Background()

	action := &types.ProposedAction{
		ActionID:          "a1",
		IntentDescription: "Swap 1 SOL for USDC",
		ConfidenceScore:   0.92,
		EndpointsToCall: []types.Endpoint{
			{Endpoint: "/swap", Method: "POST", RiskLevel: types.RiskLevelHigh, Params: map[string]any{"amount": 1.0}},
		},
	}

	proposeAction := func(t *testing.T, f *storeFixture) {
		t.Helper()
		resp := reply("m1", "swap 1 SOL", "I can do that")
		resp.ProposedActions = action
		f.api.On("SendMessage", mock.Anything, "s1", plainRequest("swap 1 SOL")).Return(resp, nil).Once()

		_, err := f.store.SendMessage(ctx, "s1", "swap 1 SOL")
		require.NoError(t, err)
		require.Equal(t, []types.ProposedAction{*action}, f.store.CurrentPendingActions())
	}

	t.Run("🟢approve_with_modified_params", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1")
		proposeAction(t, f)

		params := map[string]any{"amount": 0.5}
		f.api.On("SendMessage", mock.Anything, "s1", types.SendMessageRequest{
			Content:        "User approved actions",
			Role:           types.RoleUser,
			ActionResponse: &types.ActionResponse{ActionID: "a1", Approved: true, ModifiedParams: params},
		}).Return(reply("m2", "User approved actions", "Done"), nil).Once()

		require.NoError(t, f.store.ApproveAction(ctx, "a1", params))

		_, _, ok := f.store.PendingAction("a1")
		assert.False(t, ok)
		assert.Empty(t, f.store.CurrentPendingActions())
		assert.Empty(t, f.store.OptimisticMessages("s1"))
		assert.Len(t, f.store.CurrentMessages(), 4)
	})

	t.Run("🟢reject", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1")
		proposeAction(t, f)

		f.api.On("SendMessage", mock.Anything, "s1", types.SendMessageRequest{
			Content:        "User rejected the proposed actions",
			Role:           types.RoleUser,
			ActionResponse: &types.ActionResponse{ActionID: "a1", Approved: false},
		}).Return(reply("m2", "User rejected the proposed actions", "Ok"), nil).Once()

		require.NoError(t, f.store.RejectAction(ctx, "a1"))
		assert.Empty(t, f.store.CurrentPendingActions())
	})

	t.Run("🔴approve_failure_keeps_action", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1")
		proposeAction(t, f)

		f.api.On("SendMessage", mock.Anything, "s1", mock.AnythingOfType("types.SendMessageRequest")).Return(nil, networkError()).Once()

		err := f.store.ApproveAction(ctx, "a1", nil)
		require.Error(t, err)
		assert.Equal(t, gwclient.ErrorKindNetwork, KindOf(err))

		pending, sessionID, ok := f.store.PendingAction("a1")
		require.True(t, ok)
		assert.Equal(t, "s1", sessionID)
		assert.Equal(t, *action, pending)
		assert.Empty(t, f.store.OptimisticMessages("s1"))
	})

	t.Run("🔴not_pending", func(t *testing.T) {
		f := newStoreFixture(t)
		assert.ErrorIs(t, f.store.ApproveAction(ctx, "missing", nil), ErrActionNotPending)
		assert.ErrorIs(t, f.store.RejectAction(ctx, "missing"), ErrActionNotPending)
	})

	t.Run("🔴invalid_action_is_dropped", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1")

		resp := reply("m1", "swap", "Sure")
		resp.ProposedActions = &types.ProposedAction{ActionID: "a2", ConfidenceScore: 3}
		f.api.On("SendMessage", mock.Anything, "s1", plainRequest("swap")).Return(resp, nil).Once()

		_, err := f.store.SendMessage(ctx, "s1", "swap")
		require.NoError(t, err)
		assert.Empty(t, f.store.CurrentPendingActions())
		assert.Len(t, f.store.CurrentMessages(), 2)
	})
}

func TestStore_PreparedTransactions(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")

	prepared := &types.PreparedTransaction{
		TransactionID:       "tx-1",
		TransactionType:     "transfer",
		UnsignedTransaction: "AQID",
		FromAddress:         "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		FeeEstimate:         0.000005,
	}
	resp := reply("m1", "send 1 SOL", "Please sign")
	resp.PreparedTransaction = prepared
	f.api.On("SendMessage", mock.Anything, "s1", plainRequest("send 1 SOL")).Return(resp, nil).Once()

	var handled []types.PreparedTransaction
	f.store.OnPreparedTransaction(func(_ context.Context, sessionID string, tx types.PreparedTransaction) {
		assert.Equal(t, "s1", sessionID)
		handled = append(handled, tx)
	})

	_, err := f.store.SendMessage(ctx, "s1", "send 1 SOL")
	require.NoError(t, err)
	assert.Equal(t, []types.PreparedTransaction{*prepared}, handled)
	assert.Equal(t, []types.PreparedTransaction{*prepared}, f.store.CurrentPendingTransactions())

	f.api.On("SendMessage", mock.Anything, "s1", types.SendMessageRequest{
		Content:           "Transaction signed",
		Role:              types.RoleUser,
		SignedTransaction: "c2lnbmVk",
		TransactionID:     "tx-1",
	}).Return(reply("m2", "Transaction signed", "Submitted"), nil).Once()

	require.NoError(t, f.store.SubmitSignedTransaction(ctx, "s1", "tx-1", "c2lnbmVk"))
	_, _, ok := f.store.PendingTransaction("tx-1")
	assert.False(t, ok)
	assert.Empty(t, f.store.OptimisticMessages("s1"))
	assert.False(t, f.store.DismissTransaction("tx-1"))
}

func TestStore_SwitchSession_LoadsMessagesOnce(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1", "s2")

	s1Messages := []types.Message{{ID: "m1", Content: "hi", Role: types.RoleUser}}
	s2Messages := []types.Message{{ID: "m2", Content: "yo", Role: types.RoleUser}}
	f.api.On("ListMessages", mock.Anything, "s1").
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return(s1Messages, nil).Once()
	f.api.On("ListMessages", mock.Anything, "s2").Return(s2Messages, nil).Once()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.store.SwitchSession(ctx, "s1"))
		}()
	}
	wg.Wait()
	assert.Equal(t, s1Messages, f.store.CurrentMessages())

	require.NoError(t, f.store.SwitchSession(ctx, "s2"))
	assert.Equal(t, s2Messages, f.store.CurrentMessages())

	require.NoError(t, f.store.SwitchSession(ctx, "s1"))
	assert.Equal(t, s1Messages, f.store.CurrentMessages())

	refreshed := append(s1Messages, types.Message{ID: "m3", Content: "new", Role: types.RoleAssistant})
	f.api.On("ListMessages", mock.Anything, "s1").Return(refreshed, nil).Once()
	require.NoError(t, f.store.LoadMessages(ctx, "s1"))
	assert.Equal(t, refreshed, f.store.CurrentMessages())

	f.api.AssertNumberOfCalls(t, "ListMessages", 3)
}

func TestStore_SwitchSession_LoadFailure(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")

	f.api.On("ListMessages", mock.Anything, "s1").Return(nil, networkError()).Once()
	f.api.On("ListMessages", mock.Anything, "s1").Return([]types.Message{{ID: "m1", Content: "hi"}}, nil).Once()

	err := f.store.SwitchSession(ctx, "s1")
	require.Error(t, err)
	assert.Equal(t, gwclient.ErrorKindNetwork, KindOf(err))
	assert.Equal(t, "s1", f.store.CurrentSessionID())

	require.NoError(t, f.store.RetryLast(ctx))
	assert.Len(t, f.store.CurrentMessages(), 1)
	assert.ErrorIs(t, f.store.RetryLast(ctx), ErrNothingToRetry)
}

func TestStore_DeleteSession(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		current     string
		deleted     string
		wantCurrent string
		wantIDs     []string
	}{
		{name: "🟢current_middle_moves_to_next", current: "s2", deleted: "s2", wantCurrent: "s3", wantIDs: []string{"s1", "s3"}},
		{name: "🟢current_last_moves_to_previous", current: "s3", deleted: "s3", wantCurrent: "s2", wantIDs: []string{"s1", "s2"}},
		{name: "🟢other_session_keeps_current", current: "s1", deleted: "s3", wantCurrent: "s1", wantIDs: []string{"s1", "s2"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newStoreFixture(t)
			f.seedSessions(t, "s1", "s2", "s3")
			f.api.On("ListMessages", mock.Anything, tc.current).Return([]types.Message{}, nil).Maybe()
			require.NoError(t, f.store.SwitchSession(ctx, tc.current))

			f.api.On("DeleteSession", mock.Anything, tc.deleted).Return(nil).Once()
			require.NoError(t, f.store.DeleteSession(ctx, tc.deleted))

			assert.Equal(t, tc.wantCurrent, f.store.CurrentSessionID())
			ids := []string{}
			for _, session := range f.store.Sessions() {
				ids = append(ids, session.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}

	t.Run("🟢only_session_leaves_no_current", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1")
		f.api.On("DeleteSession", mock.Anything, "s1").Return(nil).Once()

		require.NoError(t, f.store.DeleteSession(ctx, "s1"))
		assert.Equal(t, "", f.store.CurrentSessionID())
		assert.False(t, f.store.HasAnySessions())
		assert.Empty(t, f.store.CurrentMessages())
		assert.Empty(t, f.store.CurrentPendingActions())
	})

	t.Run("🔴failure_keeps_session_and_retries", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1")
		apiErr := &gwclient.APIError{Kind: gwclient.ErrorKindValidation, StatusCode: 400, Message: "cannot delete"}
		f.api.On("DeleteSession", mock.Anything, "s1").Return(apiErr).Once()
		f.api.On("DeleteSession", mock.Anything, "s1").Return(nil).Once()

		err := f.store.DeleteSession(ctx, "s1")
		var chatErr *Error
		require.ErrorAs(t, err, &chatErr)
		assert.Equal(t, gwclient.ErrorKindValidation, chatErr.Kind)
		assert.Equal(t, "cannot delete", chatErr.Message)
		assert.True(t, f.store.HasAnySessions())

		require.NoError(t, chatErr.Retry(ctx))
		assert.False(t, f.store.HasAnySessions())
	})
}

func TestStore_LateResultsAreIgnored(t *testing.T) {
	ctx := context.Background()

	t.Run("🟢send_to_deleted_session", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1", "s2")

		started := make(chan struct{})
		release := make(chan struct{})
		f.api.On("SendMessage", mock.Anything, "s1", plainRequest("hello")).
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return(reply("m1", "hello", "Hi"), nil).Once()
		f.api.On("DeleteSession", mock.Anything, "s1").Return(nil).Once()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := f.store.SendMessage(ctx, "s1", "hello")
			assert.NoError(t, err)
		}()

		<-started
		require.NoError(t, f.store.DeleteSession(ctx, "s1"))
		close(release)
		<-done

		assert.Empty(t, f.store.Messages("s1"))
		assert.Equal(t, "s2", f.store.CurrentSessionID())
	})

	t.Run("🟢sessions_listed_for_previous_identity", func(t *testing.T) {
		f := newStoreFixture(t)

		started := make(chan struct{})
		release := make(chan struct{})
		f.api.On("ListSessions", mock.Anything).
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return([]types.Session{newSession("s1")}, nil).Once()

		done := make(chan struct{})
		go func() {
			defer close(done)
			assert.NoError(t, f.store.ListSessions(ctx))
		}()

		<-started
		f.auth.set(auth.Snapshot{State: auth.StateAuthenticated, WalletAddress: "other", Epoch: 2})
		close(release)
		<-done

		assert.Empty(t, f.store.Sessions())
		assert.Equal(t, "", f.store.CurrentSessionID())
		assert.False(t, f.store.IsLoading())
	})
}

func TestStore_IdentityChangeResetsState(t *testing.T) {
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")
	require.True(t, f.store.HasAnySessions())

	f.auth.set(auth.Snapshot{State: auth.StateConnected, WalletAddress: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", Epoch: 2})
	assert.False(t, f.store.HasAnySessions())
	assert.Equal(t, "", f.store.CurrentSessionID())
}

func TestStore_ListSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("🟢unauthenticated_clears_without_fetching", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1")

		f.auth.set(auth.Snapshot{State: auth.StateConnected, Epoch: 1})
		require.NoError(t, f.store.ListSessions(ctx))
		assert.Empty(t, f.store.Sessions())
		assert.Equal(t, "", f.store.CurrentSessionID())
	})

	t.Run("🟢keeps_current_session", func(t *testing.T) {
		f := newStoreFixture(t)
		f.seedSessions(t, "s1", "s2")
		f.api.On("ListMessages", mock.Anything, "s2").Return([]types.Message{}, nil).Once()
		require.NoError(t, f.store.SwitchSession(ctx, "s2"))

		f.seedSessions(t, "s3", "s1", "s2")
		assert.Equal(t, "s2", f.store.CurrentSessionID())
		assert.Len(t, f.store.Sessions(), 3)
	})

	t.Run("🔴failure", func(t *testing.T) {
		f := newStoreFixture(t)
		f.api.On("ListSessions", mock.Anything).Return(nil, &gwclient.APIError{Kind: gwclient.ErrorKindAuth, StatusCode: 401, Message: "Unauthorized"}).Once()

		err := f.store.ListSessions(ctx)
		require.Error(t, err)
		assert.Equal(t, gwclient.ErrorKindAuth, KindOf(err))
		assert.Equal(t, OpListSessions, f.store.Err().Op)

		f.store.ClearError()
		assert.Nil(t, f.store.Err())
	})
}

func TestStore_CreateSession_Failure(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)
	f.seedSessions(t, "s1")

	session := newSession("s2")
	f.api.On("CreateSession", mock.Anything, "New chat").Return(nil, networkError()).Once()
	f.api.On("CreateSession", mock.Anything, "New chat").Return(&session, nil).Once()

	_, err := f.store.CreateSession(ctx, "New chat")
	var chatErr *Error
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, OpCreateSession, chatErr.Op)
	assert.Equal(t, "s1", f.store.CurrentSessionID())
	assert.Len(t, f.store.Sessions(), 1)

	require.NoError(t, chatErr.Retry(ctx))
	assert.Equal(t, "s2", f.store.CurrentSessionID())
	sessions := f.store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
}

func TestStore_CreateSession_ShowsOptimisticSession(t *testing.T) {
	ctx := context.Background()
	f := newStoreFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	session := newSession("s1")
	f.api.On("CreateSession", mock.Anything, "Portfolio").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&session, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.store.CreateSession(ctx, "Portfolio")
		assert.NoError(t, err)
	}()

	<-started
	sessions := f.store.Sessions()
	require.Len(t, sessions, 1)
	assert.True(t, IsOptimistic(sessions[0].ID))
	assert.Equal(t, "Portfolio", sessions[0].Title)
	assert.Equal(t, sessions[0].ID, f.store.CurrentSessionID())
	assert.True(t, f.store.IsBusy(LoadingCreating))

	close(release)
	<-done
	assert.Equal(t, []types.Session{session}, f.store.Sessions())
	assert.False(t, f.store.IsBusy(LoadingCreating))
}
