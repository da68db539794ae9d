package chat

import (
	"slices"

	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

func (s *Store) Sessions() []types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	return slices.Clone(s.sessions)
}

func (s *Store) HasAnySessions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	return len(s.sessions) > 0
}

func (s *Store) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	return s.currentID
}

func (s *Store) CurrentSession() (types.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	idx := s.indexOfLocked(s.currentID)
	if idx < 0 {
		return types.Session{}, false
	}
	return s.sessions[idx], true
}

// Messages returns the confirmed messages of sessionID followed by its optimistic ones.
func (s *Store) Messages(sessionID string) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	return MergeMessages(s.confirmed[sessionID], s.optimistic[sessionID])
}

func (s *Store) CurrentMessages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	if s.currentID == "" {
		return []types.Message{}
	}
	return MergeMessages(s.confirmed[s.currentID], s.optimistic[s.currentID])
}

func (s *Store) OptimisticMessages(sessionID string) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	return slices.Clone(s.optimistic[sessionID])
}

// PendingAction looks up a pending action and the session it was proposed in.
func (s *Store) PendingAction(actionID string) (types.ProposedAction, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	item, ok := s.actions.Get(actionID)
	return item.Value, item.SessionID, ok
}

func (s *Store) CurrentPendingActions() []types.ProposedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	return s.actions.ForSession(s.currentID)
}

// PendingTransaction looks up a pending prepared transaction by the gateway's transaction id.
func (s *Store) PendingTransaction(transactionID string) (types.PreparedTransaction, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	item, ok := s.transactions.Get(transactionID)
	return item.Value, item.SessionID, ok
}

func (s *Store) CurrentPendingTransactions() []types.PreparedTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIdentityLocked()
	return s.transactions.ForSession(s.currentID)
}

func (s *Store) IsBusy(key LoadingKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading[key] > 0
}

// IsLoading reports whether any operation of the store is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, count := range s.loading {
		if count > 0 {
			return true
		}
	}
	return false
}

// Err returns the error of the last failed operation, nil once another operation starts.
func (s *Store) Err() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}
