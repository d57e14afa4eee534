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

// slotState is the tag of a Slot. A slot moves from empty to occupied on
// insert, from occupied to tombstone on delete and from tombstone back to
// occupied when an insert reuses it. Only rebuilding the slot array turns a
// tombstone back into an empty slot.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotTombstone
	slotOccupied
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotTombstone:
		return "tombstone"
	case slotOccupied:
		return "occupied"
	default:
		return fmt.Sprintf("slotState(%d)", uint8(s))
	}
}

// Slot is an element of the slot array. An occupied slot refers to a node in
// the table's node arena by index. The zero Slot is empty, so a freshly
// allocated slot array needs no initialization.
type Slot struct {
	state slotState
	node  int32
}

func (s *Slot) occupy(node int32) {
	s.state = slotOccupied
	s.node = node
}

func (s *Slot) bury() {
	s.state = slotTombstone
	s.node = -1
}
