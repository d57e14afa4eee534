// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package linkhash

import (
	"fmt"
	"math"
)

// none marks the absence of a node in order list and free list links.
const none int32 = -1

// maxNodes bounds the node arena so that indices fit in an int32.
const maxNodes = math.MaxInt32

// Node is an element of a Table's node arena. A live node holds one entry and
// sits in the order list; a dead node sits in the free list. Nodes are
// addressed by index, so rebuilding the slot array or growing the arena never
// invalidates order list links or Entry handles.
type Node[K, V any] struct {
	key   K
	value V
	hash  uint64
	// slot is the index of the slot referring to this node.
	slot int32
	prev int32
	// next links the order list for a live node and the free list for a dead
	// one.
	next int32
	// gen is bumped every time the node is freed so that Entry handles to a
	// previous occupant can be told apart.
	gen         uint32
	live        bool
	externalKey bool
}

// Entry is a handle to an entry of a Table obtained from Lookup, Head, Tail,
// Next, Prev or Entries. A handle stays valid across inserts and resizes
// until its entry is deleted or the table is closed. The zero Entry refers to
// nothing.
type Entry[K, V any] struct {
	t   *Table[K, V]
	idx int32
	gen uint32
}

func (e Entry[K, V]) node() *Node[K, V] {
	if e.t == nil || e.idx < 0 || int(e.idx) >= len(e.t.nodes) {
		return nil
	}
	n := &e.t.nodes[e.idx]
	if !n.live || n.gen != e.gen {
		return nil
	}
	return n
}

func (e Entry[K, V]) mustNode() *Node[K, V] {
	n := e.node()
	if n == nil {
		panic(fmt.Sprintf("linkhash: use of invalid entry (index=%d gen=%d)", e.idx, e.gen))
	}
	return n
}

// Valid reports whether e refers to an entry that is still present.
func (e Entry[K, V]) Valid() bool {
	return e.node() != nil
}

// Key returns the entry's key. It panics if e is not Valid.
func (e Entry[K, V]) Key() K {
	return e.mustNode().key
}

// Value returns the entry's value. It panics if e is not Valid.
func (e Entry[K, V]) Value() V {
	return e.mustNode().value
}

// KeyIsExternal reports whether the key was inserted with KeyExternal.
func (e Entry[K, V]) KeyIsExternal() bool {
	return e.mustNode().externalKey
}

// SetValue replaces the entry's value in place without changing its position
// in the order list. The previous value is not passed to the Releaser.
func (e Entry[K, V]) SetValue(value V) {
	e.mustNode().value = value
}

// Next returns the entry inserted after e, if any.
func (e Entry[K, V]) Next() (Entry[K, V], bool) {
	return e.t.entry(e.mustNode().next)
}

// Prev returns the entry inserted before e, if any.
func (e Entry[K, V]) Prev() (Entry[K, V], bool) {
	return e.t.entry(e.mustNode().prev)
}

func (t *Table[K, V]) entry(i int32) (Entry[K, V], bool) {
	if i == none {
		return Entry[K, V]{}, false
	}
	return Entry[K, V]{t: t, idx: i, gen: t.nodes[i].gen}, true
}

// Head returns the oldest entry in the table.
func (t *Table[K, V]) Head() (Entry[K, V], bool) {
	return t.entry(t.head)
}

// Tail returns the most recently inserted entry in the table.
func (t *Table[K, V]) Tail() (Entry[K, V], bool) {
	return t.entry(t.tail)
}

// allocNode takes a node from the free list, or the next never-used node in
// the arena, growing the arena if it is exhausted. The node is not yet live.
func (t *Table[K, V]) allocNode() (int32, error) {
	if t.free != none {
		i := t.free
		t.free = t.nodes[i].next
		return i, nil
	}
	if int(t.unused) == len(t.nodes) {
		if err := t.growNodes(); err != nil {
			return none, err
		}
	}
	i := t.unused
	t.unused++
	return i, nil
}

// freeNode returns node i to the free list, dropping its key and value.
func (t *Table[K, V]) freeNode(i int32) {
	n := &t.nodes[i]
	*n = Node[K, V]{
		gen:  n.gen + 1,
		slot: none,
		prev: none,
		next: t.free,
	}
	t.free = i
}

// growNodes doubles the node arena. Nodes keep their indices.
func (t *Table[K, V]) growNodes() error {
	n := 2 * len(t.nodes)
	if n < len(t.slots) {
		n = len(t.slots)
	}
	if n < 8 {
		n = 8
	}
	if n > maxNodes {
		n = maxNodes
	}
	if n <= len(t.nodes) {
		return fmt.Errorf("%w: node arena at its limit of %d", ErrAllocation, len(t.nodes))
	}
	nodes := t.allocator.AllocNodes(n)
	if len(nodes) < n {
		return fmt.Errorf("%w: %d nodes", ErrAllocation, n)
	}
	if debug {
		fmt.Printf("grow-nodes: %d->%d\n", len(t.nodes), n)
	}
	copy(nodes, t.nodes)
	if t.nodes != nil {
		t.allocator.FreeNodes(t.nodes)
	}
	t.nodes = nodes
	return nil
}

// linkTail appends live node i to the end of the order list.
func (t *Table[K, V]) linkTail(i int32) {
	n := &t.nodes[i]
	n.prev = t.tail
	n.next = none
	if t.tail == none {
		t.head = i
	} else {
		t.nodes[t.tail].next = i
	}
	t.tail = i
}

// unlink removes node i from the order list, repairing its neighbours and the
// head and tail.
func (t *Table[K, V]) unlink(i int32) {
	n := &t.nodes[i]
	if n.prev == none {
		t.head = n.next
	} else {
		t.nodes[n.prev].next = n.next
	}
	if n.next == none {
		t.tail = n.prev
	} else {
		t.nodes[n.next].prev = n.prev
	}
	n.prev, n.next = none, none
}

// cursor walks the order list in one direction. It tolerates deletion of the
// entry most recently returned and any number of inserts between steps: the
// neighbour is captured before the entry is handed out and only used if the
// entry itself has gone away.
type cursor[K, V any] struct {
	t        *Table[K, V]
	backward bool
	cur      Entry[K, V]
	saved    Entry[K, V]
	started  bool
}

func (c *cursor[K, V]) step(n *Node[K, V]) int32 {
	if c.backward {
		return n.prev
	}
	return n.next
}

// next advances the cursor, returning false once the walk is exhausted.
func (c *cursor[K, V]) next() (Entry[K, V], bool) {
	var i int32
	switch {
	case !c.started:
		c.started = true
		i = c.t.head
		if c.backward {
			i = c.t.tail
		}
	case c.cur.Valid():
		i = c.step(c.cur.node())
	case c.saved.Valid():
		// The current entry was deleted; resume from its captured neighbour.
		i = c.saved.idx
	default:
		// Both the current entry and its neighbour were deleted.
		return Entry[K, V]{}, false
	}
	e, ok := c.t.entry(i)
	if !ok {
		return Entry[K, V]{}, false
	}
	c.cur = e
	c.saved, _ = c.t.entry(c.step(e.node()))
	return e, true
}

// All calls yield sequentially for each key and value in insertion order,
// oldest first. If yield returns false, iteration stops. The entry being
// visited may be deleted from within yield without disturbing the walk, and
// entries inserted during iteration are visited since they join the end of
// the order list.
//
//	for k, v := range t.All {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
func (t *Table[K, V]) All(yield func(key K, value V) bool) {
	c := cursor[K, V]{t: t}
	for e, ok := c.next(); ok; e, ok = c.next() {
		n := e.node()
		if !yield(n.key, n.value) {
			return
		}
	}
}

// Entries is like All but yields Entry handles, which may be passed to
// DeleteEntry from within yield.
func (t *Table[K, V]) Entries(yield func(e Entry[K, V]) bool) {
	c := cursor[K, V]{t: t}
	for e, ok := c.next(); ok; e, ok = c.next() {
		if !yield(e) {
			return
		}
	}
}

// Backward is like All but walks from the most recently inserted entry to the
// oldest.
func (t *Table[K, V]) Backward(yield func(key K, value V) bool) {
	c := cursor[K, V]{t: t, backward: true}
	for e, ok := c.next(); ok; e, ok = c.next() {
		n := e.node()
		if !yield(n.key, n.value) {
			return
		}
	}
}
