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
	"encoding/json"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestPerlLikeHash(t *testing.T) {
	testCases := []struct {
		key      string
		expected uint64
	}{
		{"", 1},
		{"a", 33 + 'a'},
		{"ab", (33+'a')*33 + 'b'},
		// Long keys wrap at 32 bits.
		{"abcdefghijklmnopqrstuvwxyz", 0xad450400},
	}
	for _, c := range testCases {
		t.Run(c.key, func(t *testing.T) {
			require.EqualValues(t, c.expected, TextHasher{Algorithm: TextHashPerlLike}.Hash(c.key))
		})
	}
}

func TestTextHasher(t *testing.T) {
	def := TextHasher{Algorithm: TextHashDefault}
	require.Equal(t, xxhash.Sum64String("hello"), def.Hash("hello"))
	require.True(t, def.Equal("hello", "hel"+"lo"))
	require.False(t, def.Equal("hello", "Hello"))

	// Tables built from different configs hash independently, and a config
	// changed after construction does not affect an existing table.
	cfg := DefaultConfig()
	m1, err := NewText[int](4, cfg)
	require.NoError(t, err)
	cfg.TextHash = TextHashPerlLike
	m2, err := NewText[int](4, cfg)
	require.NoError(t, err)
	require.Equal(t, def.Hash("key"), m1.Hash("key"))
	require.Equal(t, perlLikeHash("key"), m2.Hash("key"))
}

func TestTextHashAlgorithmText(t *testing.T) {
	for _, a := range []TextHashAlgorithm{TextHashDefault, TextHashPerlLike} {
		b, err := json.Marshal(a)
		require.NoError(t, err)
		var got TextHashAlgorithm
		require.NoError(t, json.Unmarshal(b, &got))
		require.Equal(t, a, got)
	}

	var a TextHashAlgorithm
	require.NoError(t, a.UnmarshalText([]byte("perl-like")))
	require.Equal(t, TextHashPerlLike, a)
	require.ErrorIs(t, a.UnmarshalText([]byte("md5")), ErrInvalidArgument)
	_, err := TextHashAlgorithm(9).MarshalText()
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, "TextHashAlgorithm(9)", TextHashAlgorithm(9).String())
}

func TestIdentityHasher(t *testing.T) {
	var h IdentityHasher[int]
	a, b := new(int), new(int)
	require.Equal(t, h.Hash(a), h.Hash(a))
	require.True(t, h.Equal(a, a))
	require.False(t, h.Equal(a, b))
}

func TestComparableHasher(t *testing.T) {
	type point struct{ x, y int }
	h := NewComparableHasher[point]()
	require.Equal(t, h.Hash(point{1, 2}), h.Hash(point{1, 2}))
	require.True(t, h.Equal(point{1, 2}, point{1, 2}))
	require.False(t, h.Equal(point{1, 2}, point{2, 1}))

	m, err := NewComparable[point, string](4)
	require.NoError(t, err)
	require.NoError(t, m.Insert(point{1, 2}, "a"))
	require.ErrorIs(t, m.Insert(point{1, 2}, "b"), ErrDuplicateKey)
	v, ok := m.Get(point{1, 2})
	require.True(t, ok)
	require.Equal(t, "a", v)
}
