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


// Package linkhash is a hash table that remembers the order in which keys
// were inserted. Lookups, inserts and deletes are O(1) amortized, and
// iteration visits entries oldest first, which makes it suitable as the
// backing store of a document model whose members must keep their original
// order.
//
// # Layout
//
// A Table is made of three parts:
//
//   - the slot array, whose elements are empty, tombstones, or occupied by a
//     reference to a node;
//   - the node arena, holding the entries themselves (key, value, cached hash)
//     and addressed by int32 indices;
//   - the order list, a doubly linked list threaded through the live nodes by
//     index, from the oldest entry (head) to the newest (tail).
//
// Collisions are resolved with open addressing and linear probing: the walk
// for a key starts at hash(key) mod capacity and moves one slot at a time,
// wrapping at the end of the array. A walk stops at an empty slot or at the
// slot holding the key. Deleting an entry leaves a tombstone in its slot,
// which lookups step over and inserts reuse.
//
// The slot array is rebuilt, never patched, when it grows: the order list is
// walked from head to tail and every node is placed into a fresh array. The
// order list and the arena do not refer to slot positions, so rebuilding
// cannot disturb iteration order and Entry handles survive it.
//
// # Growth
//
// Before an insert places a new entry it checks whether the table would
// exceed a load factor of 0.66. If the live entries alone would, the slot
// array doubles. If only the live entries plus tombstones would, the slot
// array is rebuilt at the same capacity, dropping the tombstones. Either way
// the new entry is placed into the rebuilt array, so an insert that fails to
// grow the table leaves it untouched.
package linkhash

import (
	"fmt"
	"math"
	"strings"
)

const (
	debug = false

	// maxLoadPercent is the largest load factor, as a percentage, that an
	// insert may leave behind.
	maxLoadPercent = 66

	// maxCapacity is the largest slot array a Table will allocate.
	maxCapacity = math.MaxInt32
)

// InsertFlag modifies the behavior of InsertWithHash.
type InsertFlag uint8

const (
	// KeyExternal marks the key as owned by the caller: it is never passed
	// to Releaser.ReleaseKey.
	KeyExternal InsertFlag = 1 << iota
)

// Table is a hash table from keys to values that preserves insertion order.
// Keys are hashed and compared by the Hasher given at construction.
//
// A Table is NOT goroutine-safe.
type Table[K, V any] struct {
	hasher    Hasher[K]
	releaser  Releaser[K, V]
	allocator Allocator[K, V]
	// slots has length capacity. Occupied slots refer to live nodes.
	slots []Slot
	// nodes is the arena. Nodes at index >= unused have never been handed
	// out; freed nodes are chained from free.
	nodes  []Node[K, V]
	unused int32
	free   int32
	// head and tail are the oldest and newest live nodes.
	head int32
	tail int32
	// The number of occupied slots (i.e. the number of entries).
	count int
	// The number of tombstone slots. Tombstones count against the load
	// factor when deciding whether to rebuild the slot array.
	tombstones int
	closed     bool
}

// New constructs a Table with the specified initial capacity, which must be
// positive. Keys are hashed and compared with hasher.
func New[K, V any](
	initialCapacity int, hasher Hasher[K], options ...option[K, V],
) (*Table[K, V], error) {
	if initialCapacity <= 0 || initialCapacity > maxCapacity {
		return nil, fmt.Errorf("%w: initial capacity %d", ErrInvalidArgument, initialCapacity)
	}
	if hasher == nil {
		return nil, fmt.Errorf("%w: nil hasher", ErrInvalidArgument)
	}

	t := &Table[K, V]{
		hasher:    hasher,
		allocator: defaultAllocator[K, V]{},
		free:      none,
		head:      none,
		tail:      none,
	}
	for _, op := range options {
		op.apply(t)
	}

	slots := t.allocator.AllocSlots(initialCapacity)
	if len(slots) < initialCapacity {
		return nil, fmt.Errorf("%w: %d slots", ErrAllocation, initialCapacity)
	}
	t.slots = slots

	t.checkInvariants()
	return t, nil
}

// NewText constructs a Table keyed by strings, hashed with the text hash
// algorithm selected by cfg. Changing cfg afterwards has no effect on the
// table.
func NewText[V any](
	initialCapacity int, cfg Config, options ...option[string, V],
) (*Table[string, V], error) {
	return New[string, V](initialCapacity, cfg.TextHasher(), options...)
}

// NewIdentity constructs a Table keyed by pointers, hashed and compared by
// address.
func NewIdentity[T, V any](
	initialCapacity int, options ...option[*T, V],
) (*Table[*T, V], error) {
	return New[*T, V](initialCapacity, IdentityHasher[T]{}, options...)
}

// NewComparable constructs a Table keyed by any comparable type, hashed the
// way the Go runtime hashes map keys.
func NewComparable[K comparable, V any](
	initialCapacity int, options ...option[K, V],
) (*Table[K, V], error) {
	return New[K, V](initialCapacity, NewComparableHasher[K](), options...)
}

// Close releases every remaining entry, oldest first, through the configured
// Releaser and returns the table's memory to its Allocator. It is invalid to
// use a Table after it has been closed, though Close itself is idempotent and
// mutating operations report ErrClosed.
func (t *Table[K, V]) Close() {
	if t.closed {
		return
	}
	if t.releaser != nil {
		for i := t.head; i != none; i = t.nodes[i].next {
			t.release(&t.nodes[i])
		}
	}

	t.allocator.FreeSlots(t.slots)
	if t.nodes != nil {
		t.allocator.FreeNodes(t.nodes)
	}
	t.slots = nil
	t.nodes = nil
	t.unused = 0
	t.free = none
	t.head = none
	t.tail = none
	t.count = 0
	t.tombstones = 0
	t.closed = true
}

// Hash returns the hash of key under the table's Hasher. The result may be
// passed to the *WithHash methods to avoid hashing the same key repeatedly.
func (t *Table[K, V]) Hash(key K) uint64 {
	return t.hasher.Hash(key)
}

// Insert adds key with value to the end of the order list. It returns
// ErrDuplicateKey, leaving the table unchanged, if an equal key is present.
func (t *Table[K, V]) Insert(key K, value V) error {
	return t.InsertWithHash(key, value, t.hasher.Hash(key), 0)
}

// InsertWithHash is like Insert but uses h, which must equal Hash(key), and
// applies flags to the new entry.
func (t *Table[K, V]) InsertWithHash(key K, value V, h uint64, flags InsertFlag) error {
	if t.closed {
		return ErrClosed
	}

	// Insert is find composed with place. We perform find to see if the key
	// is already present; if not, find has also located the first free slot
	// of the key's probe sequence.
	match, free := t.find(key, h)
	if match >= 0 {
		if debug {
			fmt.Printf("insert(%v): duplicate at %d\n", key, match)
		}
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}

	i, err := t.allocNode()
	if err != nil {
		return err
	}

	// Before placing the entry we may decide the table is getting
	// overcrowded. The rebuilt slot array holds no tombstones and at least
	// one empty slot, so the free slot is found again there.
	if t.needsRehash() {
		if err := t.rehash(); err != nil {
			t.freeNode(i)
			return err
		}
		_, free = t.find(key, h)
	}
	if free < 0 {
		panic(fmt.Sprintf("linkhash: no free slot for %v\n%s", key, t.debugString()))
	}

	n := &t.nodes[i]
	*n = Node[K, V]{
		key:         key,
		value:       value,
		hash:        h,
		slot:        int32(free),
		gen:         n.gen,
		live:        true,
		externalKey: flags&KeyExternal != 0,
	}
	s := &t.slots[free]
	if s.state == slotTombstone {
		t.tombstones--
	}
	s.occupy(i)
	t.linkTail(i)
	t.count++

	if debug {
		fmt.Printf("insert(%v): slot=%d node=%d count=%d capacity=%d\n",
			key, free, i, t.count, len(t.slots))
	}
	t.checkInvariants()
	return nil
}

// Lookup returns the entry for key, if present.
func (t *Table[K, V]) Lookup(key K) (Entry[K, V], bool) {
	return t.LookupWithHash(key, t.hasher.Hash(key))
}

// LookupWithHash is like Lookup but uses h, which must equal Hash(key).
func (t *Table[K, V]) LookupWithHash(key K, h uint64) (Entry[K, V], bool) {
	if t.closed {
		return Entry[K, V]{}, false
	}
	match, _ := t.find(key, h)
	if match < 0 {
		return Entry[K, V]{}, false
	}
	return t.entry(t.slots[match].node)
}

// Get retrieves the value for the specified key, returning ok=false if the
// key is not present.
func (t *Table[K, V]) Get(key K) (value V, ok bool) {
	e, ok := t.Lookup(key)
	if !ok {
		return value, false
	}
	return e.Value(), true
}

// Delete removes the entry for key. It returns ErrNotFound if the key is not
// present.
func (t *Table[K, V]) Delete(key K) error {
	return t.DeleteWithHash(key, t.hasher.Hash(key))
}

// DeleteWithHash is like Delete but uses h, which must equal Hash(key).
func (t *Table[K, V]) DeleteWithHash(key K, h uint64) error {
	if t.closed {
		return ErrClosed
	}
	match, _ := t.find(key, h)
	if match < 0 {
		return fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	t.deleteAt(match)
	return nil
}

// DeleteEntry removes the entry e refers to. It returns ErrNotFound if e
// belongs to another table or its entry has already been deleted.
func (t *Table[K, V]) DeleteEntry(e Entry[K, V]) error {
	if t.closed {
		return ErrClosed
	}
	n := e.node()
	if e.t != t || n == nil {
		return fmt.Errorf("%w: stale entry", ErrNotFound)
	}
	t.deleteAt(int(n.slot))
	return nil
}

// deleteAt removes the entry in occupied slot i, leaving a tombstone.
func (t *Table[K, V]) deleteAt(i int) {
	s := &t.slots[i]
	ni := s.node
	n := &t.nodes[ni]

	t.unlink(ni)
	s.bury()
	t.tombstones++
	t.count--
	if debug {
		fmt.Printf("delete(%v): slot=%d node=%d count=%d tombstones=%d\n",
			n.key, i, ni, t.count, t.tombstones)
	}

	if t.releaser != nil {
		t.release(n)
	}
	t.freeNode(ni)
	t.checkInvariants()
}

func (t *Table[K, V]) release(n *Node[K, V]) {
	if !n.externalKey {
		t.releaser.ReleaseKey(n.key)
	}
	t.releaser.ReleaseValue(n.value)
}

// Len returns the number of entries in the table.
func (t *Table[K, V]) Len() int {
	return t.count
}

// Capacity returns the number of slots in the table.
func (t *Table[K, V]) Capacity() int {
	return len(t.slots)
}

// Tombstones returns the number of slots freed by deletes that have not been
// reused or reclaimed by a rebuild.
func (t *Table[K, V]) Tombstones() int {
	return t.tombstones
}

// Resize rebuilds the slot array with newCapacity slots, preserving every
// entry and the iteration order. newCapacity must be positive and at least
// Len(). If the slot array cannot be allocated the table is left exactly as
// it was.
func (t *Table[K, V]) Resize(newCapacity int) error {
	if t.closed {
		return ErrClosed
	}
	if newCapacity <= 0 || newCapacity > maxCapacity || newCapacity < t.count {
		return fmt.Errorf("%w: capacity %d for %d entries", ErrInvalidArgument, newCapacity, t.count)
	}
	return t.resize(newCapacity)
}

// overloaded reports whether n occupied slots out of capacity exceed the
// load factor.
func overloaded(n, capacity int) bool {
	return int64(n)*100 > int64(capacity)*maxLoadPercent
}

// needsRehash reports whether placing one more entry would exceed the load
// factor, counting tombstones as occupied.
func (t *Table[K, V]) needsRehash() bool {
	return overloaded(t.count+1+t.tombstones, len(t.slots))
}

// rehash makes room for one more entry. The slot array doubles (as often as
// needed) if the live entries alone would exceed the load factor; otherwise
// it is crowded by tombstones and is rebuilt at the same capacity.
func (t *Table[K, V]) rehash() error {
	capacity := len(t.slots)
	if !overloaded(t.count+1, capacity) {
		return t.resize(capacity)
	}
	for overloaded(t.count+1, capacity) {
		if capacity > maxCapacity/2 {
			if capacity == maxCapacity {
				return fmt.Errorf("%w: table at its limit of %d slots", ErrAllocation, capacity)
			}
			capacity = maxCapacity
			break
		}
		capacity *= 2
	}
	return t.resize(capacity)
}

// resize allocates a slot array of newCapacity slots and places every node
// into it, walking the order list from head to tail, then discards the old
// array. The nodes and the order list are untouched.
func (t *Table[K, V]) resize(newCapacity int) error {
	slots := t.allocator.AllocSlots(newCapacity)
	if len(slots) < newCapacity {
		return fmt.Errorf("%w: %d slots", ErrAllocation, newCapacity)
	}
	for i := range slots {
		slots[i] = Slot{state: slotEmpty, node: none}
	}

	if debug {
		fmt.Printf("resize: capacity=%d->%d count=%d tombstones=%d\n",
			len(t.slots), newCapacity, t.count, t.tombstones)
	}

	oldSlots := t.slots
	t.slots = slots
	t.tombstones = 0
	for i := t.head; i != none; i = t.nodes[i].next {
		t.uncheckedPlace(i)
	}
	t.allocator.FreeSlots(oldSlots)

	t.checkInvariants()
	return nil
}

func (t *Table[K, V]) checkInvariants() {
	if invariants {
		// Walk the order list, verifying its links, and that every entry can
		// be found through the slot array.
		var listed int
		prev := none
		for i := t.head; i != none; i = t.nodes[i].next {
			n := &t.nodes[i]
			if !n.live {
				panic(fmt.Sprintf("invariant failed: node(%d) in order list is not live\n%s", i, t.debugString()))
			}
			if n.prev != prev {
				panic(fmt.Sprintf("invariant failed: node(%d).prev=%d, expected %d\n%s", i, n.prev, prev, t.debugString()))
			}
			if s := t.slots[n.slot]; s.state != slotOccupied || s.node != i {
				panic(fmt.Sprintf("invariant failed: node(%d) slot(%d) is %s/%d\n%s", i, n.slot, s.state, s.node, t.debugString()))
			}
			if match, _ := t.find(n.key, n.hash); match != int(n.slot) {
				panic(fmt.Sprintf("invariant failed: node(%d): %v found at %d, expected %d\n%s",
					i, n.key, match, n.slot, t.debugString()))
			}
			prev = i
			listed++
		}
		if prev != t.tail {
			panic(fmt.Sprintf("invariant failed: tail=%d, expected %d\n%s", t.tail, prev, t.debugString()))
		}

		// Count the number of occupied and tombstone slots.
		var occupied, tombstones int
		for i := range t.slots {
			switch t.slots[i].state {
			case slotOccupied:
				occupied++
			case slotTombstone:
				tombstones++
			}
		}

		if listed != t.count || occupied != t.count {
			panic(fmt.Sprintf("invariant failed: count=%d, but found %d listed and %d occupied\n%s",
				t.count, listed, occupied, t.debugString()))
		}
		if tombstones != t.tombstones {
			panic(fmt.Sprintf("invariant failed: found %d tombstones, but expected %d\n%s",
				tombstones, t.tombstones, t.debugString()))
		}
	}
}

func (t *Table[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  count=%d  tombstones=%d  head=%d  tail=%d\n",
		len(t.slots), t.count, t.tombstones, t.head, t.tail)
	for i := range t.slots {
		switch s := t.slots[i]; s.state {
		case slotEmpty:
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case slotTombstone:
			fmt.Fprintf(&buf, "  %4d: tombstone\n", i)
		default:
			n := &t.nodes[s.node]
			fmt.Fprintf(&buf, "  %4d: %v [node=%d hash=%016x prev=%d next=%d]\n",
				i, n.key, s.node, n.hash, n.prev, n.next)
		}
	}
	return buf.String()
}
