package gwclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

func TestClient_Sessions(t *testing.T) {
	ctx := context.Background()
	session := types.Session{ID: "s1", Title: "Swap", CreatedAt: "2025-06-01T10:00:00Z", UpdatedAt: "2025-06-01T10:00:00Z"}

	t.Run("🟢list", func(t *testing.T) {
		client, _ := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/v1/chat/sessions", r.URL.Path)
			writeJSON(t, w, http.StatusOK, []types.Session{session})
		})

		sessions, err := client.ListSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.Session{session}, sessions)
	})

	t.Run("🟢create", func(t *testing.T) {
		client, _ := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			var req types.CreateSessionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Swap", req.Title)
			writeJSON(t, w, http.StatusCreated, session)
		})

		created, err := client.CreateSession(ctx, "Swap")
		require.NoError(t, err)
		assert.Equal(t, session, *created)
	})

	t.Run("🔴create_validation_error", func(t *testing.T) {
		client, _ := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusBadRequest, map[string]string{"message": "title too long"})
		})

		_, err := client.CreateSession(ctx, "x")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, ErrorKindValidation, apiErr.Kind)
		assert.Equal(t, "title too long", apiErr.Message)
		assert.Equal(t, "title too long", apiErr.Body["message"])
	})
}

func TestClient_DeleteSession(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{name: "🟢deleted", statusCode: http.StatusNoContent},
		{name: "🟢not_found_is_success", statusCode: http.StatusNotFound},
		{name: "🔴forbidden", statusCode: http.StatusForbidden, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/api/v1/chat/sessions/s1", r.URL.Path)
				w.WriteHeader(tc.statusCode)
			})

			err := client.DeleteSession(ctx, "s1")
			if tc.wantErr {
				assert.ErrorContains(t, err, "Deleting session failed: Forbidden")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClient_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("🟢with_action_response", func(t *testing.T) {
		req := types.SendMessageRequest{
			Content: "User approved actions",
			Role:    types.RoleUser,
			ActionResponse: &types.ActionResponse{
				ActionID:       "a1",
				Approved:       true,
				ModifiedParams: map[string]any{"amount": 0.5},
			},
		}

		client, _ := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/chat/sessions/s1/messages", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "user", body["role"])
			assert.NotContains(t, body, "signed_transaction")
			actionResponse := body["action_response"].(map[string]any)
			assert.Equal(t, "a1", actionResponse["action_id"])
			assert.Equal(t, true, actionResponse["approved"])

			writeJSON(t, w, http.StatusOK, map[string]any{
				"user_message":         map[string]any{"id": "m1", "content": req.Content, "role": "user", "created_at": "t1"},
				"ai_message":           map[string]any{"id": "m2", "content": "Done", "role": "assistant", "created_at": "t2"},
				"proposed_actions":     nil,
				"prepared_transaction": nil,
			})
		})

		resp, err := client.SendMessage(ctx, "s1", req)
		require.NoError(t, err)
		assert.Equal(t, "m1", resp.UserMessage.ID)
		assert.Equal(t, types.RoleAssistant, resp.AIMessage.Role)
		assert.Nil(t, resp.ProposedActions)
		assert.Nil(t, resp.PreparedTransaction)
	})

	t.Run("🟢with_prepared_transaction", func(t *testing.T) {
		client, _ := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"user_message": map[string]any{"id": "m1", "content": "send 1 SOL", "role": "user", "created_at": "t1"},
				"ai_message":   map[string]any{"id": "m2", "content": "Please sign", "role": "assistant", "created_at": "t2"},
				"prepared_transaction": map[string]any{
					"transaction_id":       "tx1",
					"transaction_type":     "transfer",
					"unsigned_transaction": "AQID",
					"from_address":         "from",
					"amount":               1.0,
					"fee_estimate":         0.000005,
				},
			})
		})

		resp, err := client.SendMessage(ctx, "s1", types.SendMessageRequest{Content: "send 1 SOL", Role: types.RoleUser})
		require.NoError(t, err)
		require.NotNil(t, resp.PreparedTransaction)
		assert.Equal(t, "tx1", resp.PreparedTransaction.TransactionID)
		assert.True(t, resp.PreparedTransaction.Amount.Valid)
		assert.Equal(t, 1.0, resp.PreparedTransaction.Amount.Float64)
		assert.False(t, resp.PreparedTransaction.ToAddress.Valid)
	})
}

func TestClient_Diagnostics(t *testing.T) {
	ctx := context.Background()
	client, _ := createTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/chat/health":
			writeJSON(t, w, http.StatusOK, map[string]string{"status": "ok"})
		case "/api/v1/chat/models":
			writeJSON(t, w, http.StatusOK, []string{"gpt-4o", "llama-3"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	models, err := client.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "llama-3"}, models)
}
