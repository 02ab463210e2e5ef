// Package nav implements a wrap-around cursor over a fixed-size collection.
//
// A [Cursor] starts at index 0. [Cursor.Next] and [Cursor.Previous] move it
// with modular wrap-around and report whether the index changed, which is
// false only for collections of zero or one element.
//
//	c := nav.New(3)
//	c.Previous()       // index 2
//	c.Counter()        // "3 of 3"
package nav

import (
	"fmt"
	"sync"
)

// State is a snapshot of a cursor.
type State struct {
	Index int `json:"index" bson:"index"`
	Count int `json:"count" bson:"count"`
}

// Counter formats s as "<index+1> of <count>".
func (s State) Counter() string {
	return fmt.Sprintf("%d of %d", s.Index+1, s.Count)
}

// CanStep reports whether stepping would change the index.
func (s State) CanStep() bool { return s.Count > 1 }

// Cursor tracks the current index into a collection. It is safe for
// concurrent use.
type Cursor struct {
	mu    sync.Mutex
	index int
	count int
}

// New returns a cursor over count elements positioned at 0. A negative count
// is treated as 0.
func New(count int) *Cursor {
	return &Cursor{count: max(count, 0)}
}

// Index returns the current index.
func (c *Cursor) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Count returns the collection size.
func (c *Cursor) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// State returns a snapshot of the cursor.
func (c *Cursor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Index: c.index, Count: c.count}
}

// CanStep reports whether Next or Previous would move the cursor.
func (c *Cursor) CanStep() bool { return c.State().CanStep() }

// Counter formats the current position as "<index+1> of <count>".
func (c *Cursor) Counter() string { return c.State().Counter() }

// Next advances to (index+1) mod count.
func (c *Cursor) Next() bool { return c.step(1) }

// Previous moves to (index-1+count) mod count.
func (c *Cursor) Previous() bool { return c.step(-1) }

func (c *Cursor) step(delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count <= 1 {
		return false
	}
	c.index = (c.index + delta + c.count) % c.count
	return true
}

// Seek moves the cursor to index, for restoring a saved position.
func (c *Cursor) Seek(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= max(c.count, 1) {
		return fmt.Errorf("index %d out of range [0, %d)", index, c.count)
	}
	c.index = index
	return nil
}
