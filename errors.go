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

import "errors"

var (
	// ErrAllocation is returned when the configured Allocator could not
	// provide storage for slots or nodes. The table is left in the state it
	// was in before the call.
	ErrAllocation = errors.New("linkhash: allocation failed")
	// ErrDuplicateKey is returned by Insert when an equal key is already
	// present. Callers wanting insert-or-replace must Delete first.
	ErrDuplicateKey = errors.New("linkhash: duplicate key")
	// ErrNotFound is returned by Delete and DeleteEntry when the target is
	// absent or the Entry handle is stale.
	ErrNotFound = errors.New("linkhash: not found")
	// ErrInvalidArgument is returned for non-positive capacities, a capacity
	// too small to hold the live entries, or a nil Hasher.
	ErrInvalidArgument = errors.New("linkhash: invalid argument")
	// ErrClosed is returned by mutating operations on a closed table.
	ErrClosed = errors.New("linkhash: table closed")
)
