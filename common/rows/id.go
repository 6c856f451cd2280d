package rows

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// RowID identifies a row independently of its display position.
// Persisted rows use their load index ("0", "1", ...); rows created during
// the session use "n<counter>".
type RowID string

// syntheticPrefix marks ids created during the session
const syntheticPrefix = "n"

// PersistedID returns the id of the i-th row loaded from persisted data
func PersistedID(i int) RowID {
	return RowID(strconv.Itoa(i))
}

// IsSynthetic reports whether the id was created during the session
func (id RowID) IsSynthetic() bool {
	rest, ok := strings.CutPrefix(string(id), syntheticPrefix)
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// IDGenerator hands out synthetic row ids for one editing session.
// The counter only moves forward, so ids are never reused even after the
// rows that carried them are removed.
type IDGenerator struct {
	mu   sync.Mutex
	next int
}

// NewIDGenerator creates a generator starting at n0
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next unused synthetic id
func (g *IDGenerator) Next() RowID {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := RowID(fmt.Sprintf("%s%d", syntheticPrefix, g.next))
	g.next++
	return id
}

// Peek returns the counter value the next id will use
func (g *IDGenerator) Peek() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
