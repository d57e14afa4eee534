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

import "fmt"

// probeSeq maintains the state for a probe sequence. The sequence is linear:
//
//	p(i) := (hash + i) mod capacity
//
// for i in [0, capacity). Every slot is visited exactly once, so a walk over
// a slot array without any empty slot still terminates.
type probeSeq struct {
	capacity int
	offset   int
	index    int
}

func makeProbeSeq(hash uint64, capacity int) probeSeq {
	return probeSeq{
		capacity: capacity,
		offset:   int(hash % uint64(capacity)),
		index:    0,
	}
}

func (s probeSeq) next() probeSeq {
	s.index++
	s.offset++
	if s.offset == s.capacity {
		s.offset = 0
	}
	return s
}

// done reports whether every slot has been visited.
func (s probeSeq) done() bool {
	return s.index >= s.capacity
}

func (s probeSeq) String() string {
	return fmt.Sprintf("capacity=%d offset=%d index=%d", s.capacity, s.offset, s.index)
}

// find walks the probe sequence for key. If an occupied slot holds a key
// equal to key, find returns its index as match. Otherwise match is -1 and
// free is the first tombstone or empty slot seen on the walk, or -1 if the
// walk saw neither. Tombstones never stop the walk; an empty slot always
// does.
func (t *Table[K, V]) find(key K, h uint64) (match, free int) {
	free = -1
	seq := makeProbeSeq(h, len(t.slots))
	if debug {
		fmt.Printf("find(%v): %s\n", key, seq)
	}

	for ; !seq.done(); seq = seq.next() {
		s := &t.slots[seq.offset]
		switch s.state {
		case slotEmpty:
			if free < 0 {
				free = seq.offset
			}
			if debug {
				fmt.Printf("find(not-found): offset=%d free=%d\n", seq.offset, free)
			}
			return -1, free

		case slotTombstone:
			if free < 0 {
				free = seq.offset
			}

		case slotOccupied:
			// Equal keys hash equally, so the stored hash filters out most
			// mismatches before Equal is consulted.
			n := &t.nodes[s.node]
			if n.hash == h && t.hasher.Equal(n.key, key) {
				if debug {
					fmt.Printf("find(found): offset=%d node=%d\n", seq.offset, s.node)
				}
				return seq.offset, -1
			}
		}
	}

	if debug {
		fmt.Printf("find(exhausted): free=%d\n", free)
	}
	return -1, free
}

// uncheckedPlace puts node i into the first non-occupied slot of its probe
// sequence. The node's key is known not to be in the table. Used when
// rebuilding the slot array, which contains no tombstones.
func (t *Table[K, V]) uncheckedPlace(i int32) {
	n := &t.nodes[i]
	for seq := makeProbeSeq(n.hash, len(t.slots)); !seq.done(); seq = seq.next() {
		s := &t.slots[seq.offset]
		if s.state != slotOccupied {
			if s.state == slotTombstone {
				t.tombstones--
			}
			s.occupy(i)
			n.slot = int32(seq.offset)
			return
		}
	}
	panic(fmt.Sprintf("linkhash: no free slot for node %d in %d slots", i, len(t.slots)))
}
