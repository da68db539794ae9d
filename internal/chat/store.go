// Package chat keeps the client's view of chat sessions: the session list, confirmed and optimistic messages, and
// the actions and transactions the assistant proposed that still wait for the user.
package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	set "github.com/deckarep/golang-set/v2"
	"github.com/go-playground/validator/v10"
	"github.com/stellar/go-stellar-sdk/support/log"
	"golang.org/x/sync/singleflight"

	"github.com/solanize/solanize-client/internal/apptracker"
	"github.com/solanize/solanize-client/internal/auth"
	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/internal/validators"
	"github.com/solanize/solanize-client/pkg/gwclient"
	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

const (
	approveContent = "User approved actions"
	rejectContent  = "User rejected the proposed actions"
	signedContent  = "Transaction signed"

	maxDerivedTitleLength = 50
)

const (
	messageKindPlain  = "message"
	messageKindAction = "action_response"
	messageKindSigned = "signed_transaction"
)

// LoadingKey names one of the store's busy flags.
type LoadingKey string

const (
	LoadingSessions           LoadingKey = "sessions"
	LoadingMessages           LoadingKey = "messages"
	LoadingSending            LoadingKey = "sending"
	LoadingCreating           LoadingKey = "creating"
	LoadingProcessingAction   LoadingKey = "processing_action"
	LoadingSigningTransaction LoadingKey = "signing_transaction"
)

// Authenticator exposes the identity the store's data belongs to. When its epoch moves, the store starts over.
type Authenticator interface {
	Snapshot() auth.Snapshot
}

var _ Authenticator = (*auth.Controller)(nil)

// PreparedTransactionHandler is called, outside the store's lock, for every valid prepared transaction the assistant
// returns.
type PreparedTransactionHandler func(ctx context.Context, sessionID string, tx types.PreparedTransaction)

type Store struct {
	api      gwclient.ChatAPI
	auth     Authenticator
	tracker  apptracker.AppTracker
	metrics  metrics.MetricsService
	validate *validator.Validate
	loads    singleflight.Group
	now      func() time.Time

	mu           sync.Mutex
	epoch        uint64
	generation   uint64
	sessions     []types.Session
	currentID    string
	confirmed    map[string][]types.Message
	optimistic   map[string][]types.Message
	loaded       set.Set[string]
	deleted      set.Set[string]
	actions      PendingSet[types.ProposedAction]
	transactions PendingSet[types.PreparedTransaction]
	loading      map[LoadingKey]int
	lastErr      *Error
	onPrepared   PreparedTransactionHandler
}

func NewStore(api gwclient.ChatAPI, authenticator Authenticator, tracker apptracker.AppTracker, metricsService metrics.MetricsService) *Store {
	s := &Store{
		api:      api,
		auth:     authenticator,
		tracker:  tracker,
		metrics:  metricsService,
		validate: validators.NewValidator(),
		now:      time.Now,
		epoch:    authenticator.Snapshot().Epoch,
	}
	s.resetLocked()
	return s
}

// OnPreparedTransaction registers the handler for prepared transactions, replacing any previous one.
func (s *Store) OnPreparedTransaction(handler PreparedTransactionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPrepared = handler
}

// Reset forgets every session, message and pending item. Results of calls already in flight are ignored.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Store) resetLocked() {
	s.generation++
	s.sessions = nil
	s.currentID = ""
	s.confirmed = make(map[string][]types.Message)
	s.optimistic = make(map[string][]types.Message)
	s.loaded = set.NewThreadUnsafeSet[string]()
	s.deleted = set.NewThreadUnsafeSet[string]()
	s.actions.Reset()
	s.transactions.Reset()
	s.loading = make(map[LoadingKey]int)
	s.lastErr = nil
	s.metrics.SetPendingActions(0)
}

// syncIdentityLocked drops the store's data when the authenticated identity changed since it was collected.
func (s *Store) syncIdentityLocked() {
	epoch := s.auth.Snapshot().Epoch
	if epoch == s.epoch {
		return
	}
	s.epoch = epoch
	s.resetLocked()
	log.Debugf("identity changed, chat state was reset")
}

// isCurrentLocked reports whether a result collected under generation may still be applied to sessionID.
func (s *Store) isCurrentLocked(generation uint64, sessionID string) bool {
	if generation != s.generation {
		return false
	}
	return sessionID == "" || !s.deleted.Contains(sessionID)
}

func (s *Store) beginLocked(keys ...LoadingKey) {
	for _, key := range keys {
		s.loading[key]++
	}
}

func (s *Store) endLocked(generation uint64, keys ...LoadingKey) {
	if generation != s.generation {
		return
	}
	for _, key := range keys {
		if s.loading[key] > 0 {
			s.loading[key]--
		}
	}
}

// fail logs chatErr and hands failures nobody classified to the tracker. Must be called without holding the lock.
func (s *Store) fail(ctx context.Context, chatErr *Error) {
	log.Ctx(ctx).Warnf("chat %s failed: %v", chatErr.Op, chatErr.Err)
	if chatErr.Kind == gwclient.ErrorKindUnknown {
		s.tracker.CaptureException(chatErr.Err, map[string]string{"chat_op": string(chatErr.Op)})
	}
}

// ListSessions fetches the session list. Without an authenticated identity the local list is cleared instead.
func (s *Store) ListSessions(ctx context.Context) error {
	s.mu.Lock()
	s.syncIdentityLocked()
	if !s.auth.Snapshot().IsAuthenticated() {
		s.sessions = nil
		s.currentID = ""
		s.mu.Unlock()
		return nil
	}
	generation := s.generation
	s.beginLocked(LoadingSessions)
	s.lastErr = nil
	s.mu.Unlock()

	sessions, err := s.api.ListSessions(ctx)

	s.mu.Lock()
	s.syncIdentityLocked()
	s.endLocked(generation, LoadingSessions)
	if !s.isCurrentLocked(generation, "") {
		s.mu.Unlock()
		log.Ctx(ctx).Debug("ignoring session list fetched for a previous identity")
		return nil
	}
	if err != nil {
		chatErr := newError(OpListSessions, err, s.ListSessions)
		s.lastErr = chatErr
		s.mu.Unlock()
		s.fail(ctx, chatErr)
		return chatErr
	}

	merged := slices.DeleteFunc(slices.Clone(s.sessions), func(session types.Session) bool {
		return !IsOptimistic(session.ID)
	})
	for _, session := range sessions {
		if !s.deleted.Contains(session.ID) {
			merged = append(merged, session)
		}
	}
	s.sessions = merged
	if s.indexOfLocked(s.currentID) < 0 {
		s.currentID = s.firstSessionIDLocked()
	}
	s.mu.Unlock()
	return nil
}

// CreateSession shows the new session at the head of the list right away and makes it current. It is replaced by the
// gateway's session once created, or removed if creation fails.
func (s *Store) CreateSession(ctx context.Context, title string) (*types.Session, error) {
	s.mu.Lock()
	s.syncIdentityLocked()
	generation := s.generation
	previousID := s.currentID
	timestamp := s.timestamp()
	temp := types.Session{
		ID:        newOptimisticID(optimisticSessionPrefix),
		Title:     title,
		CreatedAt: timestamp,
		UpdatedAt: timestamp,
	}
	s.sessions = slices.Insert(s.sessions, 0, temp)
	s.currentID = temp.ID
	s.beginLocked(LoadingCreating)
	s.lastErr = nil
	s.mu.Unlock()

	session, err := s.api.CreateSession(ctx, title)
	if err == nil && (session == nil || session.ID == "") {
		err = errEmptySessionResult
	}

	s.mu.Lock()
	s.syncIdentityLocked()
	s.endLocked(generation, LoadingCreating)
	if !s.isCurrentLocked(generation, "") {
		s.mu.Unlock()
		log.Ctx(ctx).Debug("ignoring session created for a previous identity")
		return session, err
	}

	idx := s.indexOfLocked(temp.ID)
	if err != nil {
		if idx >= 0 {
			s.sessions = slices.Delete(s.sessions, idx, idx+1)
		}
		if s.currentID == temp.ID {
			s.currentID = previousID
			if s.indexOfLocked(previousID) < 0 {
				s.currentID = s.firstSessionIDLocked()
			}
		}
		chatErr := newError(OpCreateSession, err, func(ctx context.Context) error {
			_, err := s.CreateSession(ctx, title)
			return err
		})
		s.lastErr = chatErr
		s.mu.Unlock()
		s.fail(ctx, chatErr)
		return nil, chatErr
	}

	if idx >= 0 {
		s.sessions[idx] = *session
	} else {
		s.sessions = slices.Insert(s.sessions, 0, *session)
	}
	if s.currentID == temp.ID {
		s.currentID = session.ID
	}
	s.confirmed[session.ID] = []types.Message{}
	s.loaded.Add(session.ID)
	s.mu.Unlock()

	log.Ctx(ctx).Debugf("created chat session %s", session.ID)
	return session, nil
}

// SwitchSession makes sessionID current and fetches its messages the first time it is shown.
func (s *Store) SwitchSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	s.syncIdentityLocked()
	if sessionID == "" || s.deleted.Contains(sessionID) {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.currentID = sessionID
	needsLoad := !IsOptimistic(sessionID) && !s.loaded.Contains(sessionID)
	s.mu.Unlock()

	if !needsLoad {
		return nil
	}
	return s.loadMessages(ctx, sessionID, false)
}

// LoadMessages refetches the confirmed messages of sessionID.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) error {
	if IsOptimistic(sessionID) {
		return ErrSessionNotCreated
	}
	return s.loadMessages(ctx, sessionID, true)
}

func (s *Store) loadMessages(ctx context.Context, sessionID string, force bool) error {
	s.mu.Lock()
	s.syncIdentityLocked()
	generation := s.generation
	s.mu.Unlock()

	key := fmt.Sprintf("%s/%d", sessionID, generation)
	_, err, _ := s.loads.Do(key, func() (interface{}, error) {
		s.mu.Lock()
		if generation != s.generation || (!force && s.loaded.Contains(sessionID)) {
			s.mu.Unlock()
			return nil, nil
		}
		s.beginLocked(LoadingMessages)
		s.lastErr = nil
		s.mu.Unlock()

		messages, err := s.api.ListMessages(ctx, sessionID)

		s.mu.Lock()
		s.syncIdentityLocked()
		s.endLocked(generation, LoadingMessages)
		if !s.isCurrentLocked(generation, sessionID) {
			s.mu.Unlock()
			log.Ctx(ctx).Debugf("ignoring messages fetched for session %s, it is no longer relevant", sessionID)
			return nil, nil
		}
		if err != nil {
			chatErr := newError(OpLoadMessages, err, func(ctx context.Context) error {
				return s.LoadMessages(ctx, sessionID)
			})
			s.lastErr = chatErr
			s.mu.Unlock()
			s.fail(ctx, chatErr)
			return nil, chatErr
		}

		s.confirmed[sessionID] = messages
		s.loaded.Add(sessionID)
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	return nil
}

// Send sends content to the current session, creating a session titled after the content when none is current.
func (s *Store) Send(ctx context.Context, content string) (*types.SendMessageResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := s.CurrentSessionID()
	if sessionID == "" {
		session, err := s.CreateSession(ctx, deriveTitle(content))
		if err != nil {
			return nil, err
		}
		sessionID = session.ID
	}
	return s.SendMessage(ctx, sessionID, content)
}

// SendMessage posts a user message to sessionID. The message shows up as optimistic until the gateway confirms it.
// On failure it stays, followed by an assistant-role error message, and the returned *Error can retry the send.
func (s *Store) SendMessage(ctx context.Context, sessionID, content string) (*types.SendMessageResponse, error) {
	return s.send(ctx, OpSendMessage, sessionID, types.SendMessageRequest{Content: content}, nil)
}

// ApproveAction accepts a pending action, with modifiedParams carrying the parameters the user edited.
func (s *Store) ApproveAction(ctx context.Context, actionID string, modifiedParams map[string]any) error {
	return s.respondToAction(ctx, OpApproveAction, actionID, &types.ActionResponse{
		ActionID:       actionID,
		Approved:       true,
		ModifiedParams: modifiedParams,
	})
}

func (s *Store) RejectAction(ctx context.Context, actionID string) error {
	return s.respondToAction(ctx, OpRejectAction, actionID, &types.ActionResponse{
		ActionID: actionID,
		Approved: false,
	})
}

func (s *Store) respondToAction(ctx context.Context, op Op, actionID string, response *types.ActionResponse) error {
	s.mu.Lock()
	s.syncIdentityLocked()
	item, ok := s.actions.Get(actionID)
	s.mu.Unlock()
	if !ok {
		return ErrActionNotPending
	}

	content := approveContent
	if !response.Approved {
		content = rejectContent
	}
	req := types.SendMessageRequest{Content: content, ActionResponse: response}
	_, err := s.send(ctx, op, item.SessionID, req, func() {
		s.actions.Remove(actionID)
	})
	return err
}

// SubmitSignedTransaction sends a signed transaction back into sessionID. The prepared transaction stops being
// pending once the gateway accepts it.
func (s *Store) SubmitSignedTransaction(ctx context.Context, sessionID, transactionID, signedTransaction string) error {
	req := types.SendMessageRequest{
		Content:           signedContent,
		SignedTransaction: signedTransaction,
		TransactionID:     transactionID,
	}
	_, err := s.send(ctx, OpSubmitSigned, sessionID, req, func() {
		s.transactions.Remove(transactionID)
	})
	return err
}

// DismissTransaction drops a pending prepared transaction without telling the gateway.
func (s *Store) DismissTransaction(transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions.Remove(transactionID)
}

func (s *Store) send(ctx context.Context, op Op, sessionID string, req types.SendMessageRequest, resolve func()) (*types.SendMessageResponse, error) {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return nil, ErrEmptyMessage
	}
	req.Role = types.RoleUser
	kind, keys := classifyRequest(req)

	s.mu.Lock()
	s.syncIdentityLocked()
	switch {
	case sessionID == "" || s.deleted.Contains(sessionID):
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	case IsOptimistic(sessionID):
		s.mu.Unlock()
		return nil, ErrSessionNotCreated
	}
	generation := s.generation
	var optimisticID string
	if kind == messageKindPlain {
		optimisticID = newOptimisticID(optimisticUserPrefix)
		s.optimistic[sessionID] = append(s.optimistic[sessionID], types.Message{
			ID:        optimisticID,
			Content:   req.Content,
			Role:      types.RoleUser,
			CreatedAt: s.timestamp(),
		})
	}
	s.beginLocked(keys...)
	s.lastErr = nil
	s.mu.Unlock()

	resp, err := s.api.SendMessage(ctx, sessionID, req)

	s.mu.Lock()
	s.syncIdentityLocked()
	s.endLocked(generation, keys...)
	if !s.isCurrentLocked(generation, sessionID) {
		s.mu.Unlock()
		log.Ctx(ctx).Debugf("ignoring %s result for session %s, it is no longer relevant", op, sessionID)
		return resp, err
	}

	if err != nil {
		var errorID string
		chatErr := newError(op, err, func(ctx context.Context) error {
			s.discardOptimistic(sessionID, optimisticID, errorID)
			_, err := s.send(ctx, op, sessionID, req, resolve)
			return err
		})
		if kind == messageKindPlain {
			errorID = newOptimisticID(optimisticErrorPrefix)
			s.optimistic[sessionID] = append(s.optimistic[sessionID], types.Message{
				ID:        errorID,
				Content:   fmt.Sprintf("Sorry, I encountered an error: %s. Please try again.", strings.TrimSuffix(chatErr.Message, ".")),
				Role:      types.RoleAssistant,
				CreatedAt: s.timestamp(),
			})
		}
		s.lastErr = chatErr
		s.mu.Unlock()

		s.metrics.IncMessagesSent(kind, false)
		s.fail(ctx, chatErr)
		return nil, chatErr
	}

	s.optimistic[sessionID] = removeMessages(s.optimistic[sessionID], optimisticID)
	s.confirmed[sessionID] = append(s.confirmed[sessionID], resp.UserMessage, resp.AIMessage)
	if resolve != nil {
		resolve()
	}
	prepared := s.trackPayloadsLocked(ctx, sessionID, resp)
	s.touchLocked(sessionID)
	s.metrics.SetPendingActions(s.actions.Len())
	handler := s.onPrepared
	s.mu.Unlock()

	s.metrics.IncMessagesSent(kind, true)
	if prepared != nil && handler != nil {
		handler(ctx, sessionID, *prepared)
	}
	return resp, nil
}

// trackPayloadsLocked records the proposed action and prepared transaction of resp. Payloads that fail validation are
// logged and dropped, the messages themselves are kept.
func (s *Store) trackPayloadsLocked(ctx context.Context, sessionID string, resp *types.SendMessageResponse) *types.PreparedTransaction {
	if action := resp.ProposedActions; action != nil {
		if err := validators.ValidateStruct(s.validate, action); err != nil {
			log.Ctx(ctx).Warnf("dropping proposed action in session %s: %v", sessionID, err)
		} else {
			s.actions.Add(action.ActionID, sessionID, *action)
		}
	}

	tx := resp.PreparedTransaction
	if tx == nil {
		return nil
	}
	if err := validators.ValidateStruct(s.validate, tx); err != nil {
		log.Ctx(ctx).Warnf("dropping prepared transaction in session %s: %v", sessionID, err)
		return nil
	}
	s.transactions.Add(tx.TransactionID, sessionID, *tx)
	return tx
}

func (s *Store) discardOptimistic(sessionID string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.optimistic[sessionID] = removeMessages(s.optimistic[sessionID], ids...)
}

// DeleteSession deletes sessionID and everything the store holds for it. When it was current, the session that takes
// its place in the list becomes current.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if IsOptimistic(sessionID) {
		return ErrSessionNotCreated
	}

	s.mu.Lock()
	s.syncIdentityLocked()
	generation := s.generation
	s.lastErr = nil
	s.mu.Unlock()

	err := s.api.DeleteSession(ctx, sessionID)

	s.mu.Lock()
	s.syncIdentityLocked()
	if !s.isCurrentLocked(generation, "") {
		s.mu.Unlock()
		log.Ctx(ctx).Debugf("ignoring deletion of session %s made for a previous identity", sessionID)
		return err
	}
	if err != nil {
		chatErr := newError(OpDeleteSession, err, func(ctx context.Context) error {
			return s.DeleteSession(ctx, sessionID)
		})
		s.lastErr = chatErr
		s.mu.Unlock()
		s.fail(ctx, chatErr)
		return chatErr
	}

	s.deleted.Add(sessionID)
	s.loaded.Remove(sessionID)
	delete(s.confirmed, sessionID)
	delete(s.optimistic, sessionID)
	s.actions.RemoveSession(sessionID)
	s.transactions.RemoveSession(sessionID)
	s.metrics.SetPendingActions(s.actions.Len())

	if idx := s.indexOfLocked(sessionID); idx >= 0 {
		s.sessions = slices.Delete(s.sessions, idx, idx+1)
		if s.currentID == sessionID {
			switch {
			case idx < len(s.sessions):
				s.currentID = s.sessions[idx].ID
			case len(s.sessions) > 0:
				s.currentID = s.sessions[len(s.sessions)-1].ID
			default:
				s.currentID = ""
			}
		}
	} else if s.currentID == sessionID {
		s.currentID = s.firstSessionIDLocked()
	}
	s.mu.Unlock()

	log.Ctx(ctx).Debugf("deleted chat session %s", sessionID)
	return nil
}

// RetryLast re-runs the operation behind the last recorded error.
func (s *Store) RetryLast(ctx context.Context) error {
	s.mu.Lock()
	lastErr := s.lastErr
	s.lastErr = nil
	s.mu.Unlock()

	if lastErr == nil || lastErr.Retry == nil {
		return ErrNothingToRetry
	}
	return lastErr.Retry(ctx)
}

func (s *Store) touchLocked(sessionID string) {
	if idx := s.indexOfLocked(sessionID); idx >= 0 {
		s.sessions[idx].UpdatedAt = s.timestamp()
	}
}

func (s *Store) indexOfLocked(sessionID string) int {
	if sessionID == "" {
		return -1
	}
	return slices.IndexFunc(s.sessions, func(session types.Session) bool { return session.ID == sessionID })
}

func (s *Store) firstSessionIDLocked() string {
	if len(s.sessions) == 0 {
		return ""
	}
	return s.sessions[0].ID
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func classifyRequest(req types.SendMessageRequest) (string, []LoadingKey) {
	switch {
	case req.ActionResponse != nil:
		return messageKindAction, []LoadingKey{LoadingSending, LoadingProcessingAction}
	case req.SignedTransaction != "":
		return messageKindSigned, []LoadingKey{LoadingSending, LoadingSigningTransaction}
	default:
		return messageKindPlain, []LoadingKey{LoadingSending}
	}
}

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= maxDerivedTitleLength {
		return content
	}
	return strings.TrimSpace(string(runes[:maxDerivedTitleLength])) + "..."
}
