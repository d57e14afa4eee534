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
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/dolthub/maphash"
)

// Hasher supplies the hash function and equality predicate for keys of type
// K. The two must agree: keys that are Equal must have the same Hash.
type Hasher[K any] interface {
	Hash(key K) uint64
	Equal(a, b K) bool
}

// HasherFuncs adapts a pair of functions to the Hasher interface.
type HasherFuncs[K any] struct {
	HashFn  func(key K) uint64
	EqualFn func(a, b K) bool
}

// Hash implements Hasher.
func (f HasherFuncs[K]) Hash(key K) uint64 {
	return f.HashFn(key)
}

// Equal implements Hasher.
func (f HasherFuncs[K]) Equal(a, b K) bool {
	return f.EqualFn(a, b)
}

// identityPrime is the golden-ratio multiplier used to spread addresses.
const identityPrime = 0x9e370001

// IdentityHasher hashes pointers by address. Two keys are equal only if they
// are the same pointer, which suits keys that are distinct object instances
// rather than comparable values.
type IdentityHasher[T any] struct{}

// Hash implements Hasher.
func (IdentityHasher[T]) Hash(key *T) uint64 {
	return (uint64(uintptr(unsafe.Pointer(key))) * identityPrime) >> 4
}

// Equal implements Hasher.
func (IdentityHasher[T]) Equal(a, b *T) bool {
	return a == b
}

// TextHashAlgorithm selects the function used to hash the bytes of a text
// key.
type TextHashAlgorithm uint8

const (
	// TextHashDefault hashes text keys with 64-bit xxHash.
	TextHashDefault TextHashAlgorithm = iota
	// TextHashPerlLike hashes text keys with the multiply-by-33 function
	// popularized by Perl. It is cheaper on short keys and weaker on long
	// ones.
	TextHashPerlLike
)

var textHashAlgorithmNames = [...]string{
	TextHashDefault:  "default",
	TextHashPerlLike: "perllike",
}

func (a TextHashAlgorithm) String() string {
	if int(a) < len(textHashAlgorithmNames) {
		return textHashAlgorithmNames[a]
	}
	return fmt.Sprintf("TextHashAlgorithm(%d)", uint8(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a TextHashAlgorithm) MarshalText() ([]byte, error) {
	if int(a) >= len(textHashAlgorithmNames) {
		return nil, fmt.Errorf("%w: text hash algorithm %d", ErrInvalidArgument, uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts "default",
// "perllike" and "perl-like".
func (a *TextHashAlgorithm) UnmarshalText(text []byte) error {
	switch string(text) {
	case "default", "":
		*a = TextHashDefault
	case "perllike", "perl-like":
		*a = TextHashPerlLike
	default:
		return fmt.Errorf("%w: unknown text hash algorithm %q", ErrInvalidArgument, text)
	}
	return nil
}

// TextHasher hashes string keys by content and compares them byte-wise.
type TextHasher struct {
	Algorithm TextHashAlgorithm
}

// Hash implements Hasher.
func (h TextHasher) Hash(key string) uint64 {
	if h.Algorithm == TextHashPerlLike {
		return perlLikeHash(key)
	}
	return xxhash.Sum64String(key)
}

// Equal implements Hasher.
func (TextHasher) Equal(a, b string) bool {
	return a == b
}

// perlLikeHash computes h = h*33 + c over the bytes of s starting from 1,
// wrapping at 32 bits.
func perlLikeHash(s string) uint64 {
	h := uint32(1)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return uint64(h)
}

// ComparableHasher hashes any comparable key with the same seeded hash
// function the Go runtime uses for map[K]V. The zero value is not usable; use
// NewComparableHasher.
type ComparableHasher[K comparable] struct {
	h maphash.Hasher[K]
}

// NewComparableHasher returns a ComparableHasher with a fresh random seed.
func NewComparableHasher[K comparable]() ComparableHasher[K] {
	return ComparableHasher[K]{h: maphash.NewHasher[K]()}
}

// Hash implements Hasher.
func (c ComparableHasher[K]) Hash(key K) uint64 {
	return c.h.Hash(key)
}

// Equal implements Hasher.
func (ComparableHasher[K]) Equal(a, b K) bool {
	return a == b
}
