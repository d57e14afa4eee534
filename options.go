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

// option provide an interface to do work on Table while it is being created.
type option[K, V any] interface {
	apply(t *Table[K, V])
}

// Releaser takes ownership of keys and values removed from a Table, either by
// Delete or by Close. ReleaseValue is called for every removed entry;
// ReleaseKey is skipped for keys inserted with KeyExternal, whose lifetime the
// caller manages. Each entry is released exactly once.
type Releaser[K, V any] interface {
	ReleaseKey(key K)
	ReleaseValue(value V)
}

// ReleaseFuncs adapts a pair of functions to the Releaser interface. Either
// function may be nil.
type ReleaseFuncs[K, V any] struct {
	Key   func(key K)
	Value func(value V)
}

// ReleaseKey implements Releaser.
func (f ReleaseFuncs[K, V]) ReleaseKey(key K) {
	if f.Key != nil {
		f.Key(key)
	}
}

// ReleaseValue implements Releaser.
func (f ReleaseFuncs[K, V]) ReleaseValue(value V) {
	if f.Value != nil {
		f.Value(value)
	}
}

type releaserOption[K, V any] struct {
	releaser Releaser[K, V]
}

func (op releaserOption[K, V]) apply(t *Table[K, V]) {
	t.releaser = op.releaser
}

// WithReleaser is an option to specify the Releaser for a Table[K,V]. Without
// it, removed keys and values are simply dropped.
func WithReleaser[K, V any](releaser Releaser[K, V]) option[K, V] {
	return releaserOption[K, V]{releaser}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Table. The default allocator utilizes Go's builtin make() and allows
// the GC to reclaim memory.
//
// An Allocator signals that memory cannot be obtained by returning nil. The
// Table reports ErrAllocation and stays in its previous state.
type Allocator[K, V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot, n).
	AllocSlots(n int) []Slot

	// AllocNodes should return a slice equivalent to make([]Node[K,V], n).
	AllocNodes(n int) []Node[K, V]

	// FreeSlots can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []Slot)

	// FreeNodes can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocNodes.
	FreeNodes(v []Node[K, V])
}

type defaultAllocator[K, V any] struct{}

func (defaultAllocator[K, V]) AllocSlots(n int) []Slot {
	return make([]Slot, n)
}

func (defaultAllocator[K, V]) AllocNodes(n int) []Node[K, V] {
	return make([]Node[K, V], n)
}

func (defaultAllocator[K, V]) FreeSlots(v []Slot) {
}

func (defaultAllocator[K, V]) FreeNodes(v []Node[K, V]) {
}

type allocatorOption[K, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(t *Table[K, V]) {
	t.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Table[K,V].
func WithAllocator[K, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
