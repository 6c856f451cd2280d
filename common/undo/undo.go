// Package undo keeps a single snapshot of editor state so that the last
// destructive or reordering edit can be reverted.
package undo

// Token holds at most one snapshot. The zero Token is empty.
type Token[T any] struct {
	state T
	ok    bool
}

// Take stores state as the only snapshot
func Take[T any](state T) Token[T] {
	return Token[T]{state: state, ok: true}
}

// Available reports whether the token holds a snapshot
func (t Token[T]) Available() bool {
	return t.ok
}

// Undo returns the snapshot and an empty token. Without a snapshot it
// returns live unchanged.
func (t Token[T]) Undo(live T) (T, Token[T]) {
	if !t.ok {
		return live, t
	}
	return t.state, Token[T]{}
}

// EditSet is the stateful form of Token used by editor sections.
// Taking a new snapshot discards the previous one.
type EditSet[T any] struct {
	token Token[T]
}

// Snapshot replaces any retained snapshot with state
func (e *EditSet[T]) Snapshot(state T) {
	e.token = Take(state)
}

// Undo restores the snapshot and consumes it
func (e *EditSet[T]) Undo(live T) T {
	restored, next := e.token.Undo(live)
	e.token = next
	return restored
}

// Available reports whether an undo is possible
func (e *EditSet[T]) Available() bool {
	return e.token.Available()
}

// Discard drops the snapshot without restoring it
func (e *EditSet[T]) Discard() {
	e.token = Token[T]{}
}
