package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/linkhash"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// runScript executes each line and returns the output lines.
func runScript(t *testing.T, sh *shell, out *strings.Builder, lines ...string) []string {
	t.Helper()
	out.Reset()
	for _, line := range lines {
		require.False(t, sh.exec(line), line)
	}
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
}

func newTestShell(t *testing.T, cfg linkhash.Config) (*shell, *strings.Builder) {
	t.Helper()
	var out strings.Builder
	sh, err := newShell(cfg, &out)
	require.NoError(t, err)
	t.Cleanup(sh.table.Close)
	return sh, &out
}

func TestShellOrder(t *testing.T) {
	sh, out := newTestShell(t, linkhash.Config{InitialCapacity: 4})

	got := runScript(t, sh, out,
		"put a 1", "put b 2", "put c 3",
		"del b",
		"put b 20",
		"put a 99",
		"ls",
	)
	want := []string{
		"OK", "OK", "OK",
		"OK",
		"OK",
		"error: linkhash: duplicate key: a",
		"a\t1",
		"c\t3",
		"b\t20",
		"(3 of 3)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected output (-want +got):\n%s", diff)
	}

	got = runScript(t, sh, out, "rls 2", "get c", "get z", "set c 30", "get c", "len")
	want = []string{"b\t20", "c\t3", "(2 of 3)", "3", "(not found)", "OK", "30", "3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestShellResizeAndInfo(t *testing.T) {
	sh, out := newTestShell(t, linkhash.Config{InitialCapacity: 16, TextHash: linkhash.TextHashPerlLike})

	got := runScript(t, sh, out, "seq 4", "seq 5", "info")
	require.Equal(t, []string{
		"inserted 4, skipped 0 duplicates",
		"inserted 1, skipped 4 duplicates",
		"len=5 capacity=16 load=0.31 tombstones=0 hash=perllike",
	}, got)

	got = runScript(t, sh, out, "resize 3", "resize 64", "info", "resize x")
	require.Equal(t, []string{
		"error: linkhash: invalid argument: capacity 3 for 5 entries",
		"OK",
		"len=5 capacity=64 load=0.08 tombstones=0 hash=perllike",
		"error: invalid capacity: x",
	}, got)

	got = runScript(t, sh, out, "hash a")
	require.Equal(t, []string{"0000000000000082 (slot 2 of 64)"}, got)
}

func TestShellErrors(t *testing.T) {
	sh, out := newTestShell(t, linkhash.DefaultConfig())
	got := runScript(t, sh, out, "bogus", "put a", "del a", "ls x", "set a 1")
	require.Equal(t, []string{
		"error: unknown command: bogus (type 'help' for commands)",
		"error: usage: put <key> <value>",
		"error: linkhash: not found: a",
		"error: invalid limit: x",
		"error: linkhash: not found: a",
	}, got)

	require.True(t, sh.exec("quit"))
	require.True(t, sh.exec("Q"))
}

func TestShellDump(t *testing.T) {
	sh, out := newTestShell(t, linkhash.DefaultConfig())
	path := filepath.Join(t.TempDir(), "dump.tsv")

	got := runScript(t, sh, out, "put x 1", "put y 2", "put z 3", "del y", "dump "+path)
	require.Equal(t, "wrote 2 entries to "+path, got[len(got)-1])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "x\t1\nz\t3\n", string(data))
}

func TestLoadConfigFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lhsh.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// Start small.
		"initial_capacity": 4,
		"text_hash": "perllike",
	}`), 0o644))

	o, fs, err := parseFlags([]string{"--config", path})
	require.NoError(t, err)
	cfg, err := loadConfig(o, fs)
	require.NoError(t, err)
	require.Equal(t, linkhash.Config{InitialCapacity: 4, TextHash: linkhash.TextHashPerlLike}, cfg)

	o, fs, err = parseFlags([]string{"-c", path, "-n", "32", "--hash", "default"})
	require.NoError(t, err)
	cfg, err = loadConfig(o, fs)
	require.NoError(t, err)
	require.Equal(t, linkhash.Config{InitialCapacity: 32, TextHash: linkhash.TextHashDefault}, cfg)

	o, fs, err = parseFlags([]string{"--hash", "crc"})
	require.NoError(t, err)
	_, err = loadConfig(o, fs)
	require.ErrorIs(t, err, linkhash.ErrInvalidArgument)

	_, _, err = parseFlags([]string{"extra"})
	require.Error(t, err)
}

func TestCompleter(t *testing.T) {
	require.Equal(t, []string{"del", "delete", "dump"}, completer("d"))
	require.Empty(t, completer("zz"))
}
