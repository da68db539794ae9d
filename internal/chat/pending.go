package chat

import "slices"

// PendingItem is an entry awaiting a user decision, tagged with the session it arrived in.
type PendingItem[T any] struct {
	ID        string
	SessionID string
	Value     T
}

// PendingSet keeps items keyed by id in arrival order. Adding an id twice replaces the earlier entry.
type PendingSet[T any] struct {
	items []PendingItem[T]
}

func (p *PendingSet[T]) Add(id, sessionID string, value T) {
	p.Remove(id)
	p.items = append(p.items, PendingItem[T]{ID: id, SessionID: sessionID, Value: value})
}

// Remove drops the item with the given id and reports whether it was present.
func (p *PendingSet[T]) Remove(id string) bool {
	idx := slices.IndexFunc(p.items, func(item PendingItem[T]) bool { return item.ID == id })
	if idx < 0 {
		return false
	}
	p.items = slices.Delete(p.items, idx, idx+1)
	return true
}

func (p *PendingSet[T]) Get(id string) (PendingItem[T], bool) {
	for _, item := range p.items {
		if item.ID == id {
			return item, true
		}
	}
	return PendingItem[T]{}, false
}

// RemoveSession drops every item that belongs to sessionID.
func (p *PendingSet[T]) RemoveSession(sessionID string) {
	p.items = slices.DeleteFunc(p.items, func(item PendingItem[T]) bool { return item.SessionID == sessionID })
}

// ForSession returns the values of sessionID in arrival order. An empty sessionID yields nothing.
func (p *PendingSet[T]) ForSession(sessionID string) []T {
	values := []T{}
	if sessionID == "" {
		return values
	}
	for _, item := range p.items {
		if item.SessionID == sessionID {
			values = append(values, item.Value)
		}
	}
	return values
}

func (p *PendingSet[T]) Len() int {
	return len(p.items)
}

func (p *PendingSet[T]) Reset() {
	p.items = nil
}
