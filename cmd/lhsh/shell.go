package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/linkhash"
	"github.com/natefinch/atomic"
)

var commandNames = []string{
	"put", "set", "get", "del", "delete",
	"ls", "list", "rls", "len", "count",
	"info", "resize", "hash", "seq", "dump",
	"help", "exit", "quit", "q",
}

// shell executes commands against a single table, writing results to out.
type shell struct {
	cfg   linkhash.Config
	table *linkhash.Table[string, string]
	out   io.Writer
}

func newShell(cfg linkhash.Config, out io.Writer) (*shell, error) {
	t, err := linkhash.NewText[string](cfg.InitialCapacity, cfg)
	if err != nil {
		return nil, err
	}
	return &shell{cfg: cfg, table: t, out: out}, nil
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// exec runs one command line and reports whether the shell should exit.
// Errors are printed, never returned.
func (s *shell) exec(line string) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		s.printHelp()
	case "put":
		err = s.cmdPut(args)
	case "set":
		err = s.cmdSet(args)
	case "get":
		err = s.cmdGet(args)
	case "del", "delete":
		err = s.cmdDelete(args)
	case "ls", "list":
		err = s.cmdList(args, false)
	case "rls":
		err = s.cmdList(args, true)
	case "len", "count":
		s.printf("%d\n", s.table.Len())
	case "info":
		s.cmdInfo()
	case "resize":
		err = s.cmdResize(args)
	case "hash":
		err = s.cmdHash(args)
	case "seq":
		err = s.cmdSeq(args)
	case "dump":
		err = s.cmdDump(args)
	default:
		err = fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
	if err != nil {
		s.printf("error: %v\n", err)
	}
	return false
}

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func (s *shell) cmdPut(args []string) error {
	if len(args) != 2 {
		return usage("put <key> <value>")
	}
	if err := s.table.Insert(args[0], args[1]); err != nil {
		return err
	}
	s.printf("OK\n")
	return nil
}

func (s *shell) cmdSet(args []string) error {
	if len(args) != 2 {
		return usage("set <key> <value>")
	}
	e, ok := s.table.Lookup(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", linkhash.ErrNotFound, args[0])
	}
	e.SetValue(args[1])
	s.printf("OK\n")
	return nil
}

func (s *shell) cmdGet(args []string) error {
	if len(args) != 1 {
		return usage("get <key>")
	}
	v, ok := s.table.Get(args[0])
	if !ok {
		s.printf("(not found)\n")
		return nil
	}
	s.printf("%s\n", v)
	return nil
}

func (s *shell) cmdDelete(args []string) error {
	if len(args) != 1 {
		return usage("del <key>")
	}
	if err := s.table.Delete(args[0]); err != nil {
		return err
	}
	s.printf("OK\n")
	return nil
}

func parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return -1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit: %s", args[0])
	}
	return n, nil
}

func (s *shell) cmdList(args []string, backward bool) error {
	limit, err := parseLimit(args)
	if err != nil {
		return err
	}
	var n int
	emit := func(k, v string) bool {
		if limit >= 0 && n >= limit {
			return false
		}
		n++
		s.printf("%s\t%s\n", k, v)
		return true
	}
	if backward {
		s.table.Backward(emit)
	} else {
		s.table.All(emit)
	}
	s.printf("(%d of %d)\n", n, s.table.Len())
	return nil
}

func (s *shell) cmdInfo() {
	capacity := s.table.Capacity()
	s.printf("len=%d capacity=%d load=%.2f tombstones=%d hash=%s\n",
		s.table.Len(), capacity, float64(s.table.Len())/float64(capacity),
		s.table.Tombstones(), s.cfg.TextHash)
}

func (s *shell) cmdResize(args []string) error {
	if len(args) != 1 {
		return usage("resize <capacity>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid capacity: %s", args[0])
	}
	if err := s.table.Resize(n); err != nil {
		return err
	}
	s.printf("OK\n")
	return nil
}

func (s *shell) cmdHash(args []string) error {
	if len(args) != 1 {
		return usage("hash <key>")
	}
	h := s.table.Hash(args[0])
	s.printf("%016x (slot %d of %d)\n", h, h%uint64(s.table.Capacity()), s.table.Capacity())
	return nil
}

func (s *shell) cmdSeq(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("seq <count> [prefix]")
	}
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 0 {
		return fmt.Errorf("invalid count: %s", args[0])
	}
	prefix := "key"
	if len(args) == 2 {
		prefix = args[1]
	}

	var inserted, skipped int
	for i := 0; i < count; i++ {
		k := prefix + strconv.Itoa(i)
		err := s.table.Insert(k, strconv.Itoa(i))
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, linkhash.ErrDuplicateKey):
			skipped++
		default:
			return err
		}
	}
	s.printf("inserted %d, skipped %d duplicates\n", inserted, skipped)
	return nil
}

func (s *shell) cmdDump(args []string) error {
	if len(args) != 1 {
		return usage("dump <file>")
	}
	var buf strings.Builder
	s.table.All(func(k, v string) bool {
		buf.WriteString(k)
		buf.WriteByte('\t')
		buf.WriteString(v)
		buf.WriteByte('\n')
		return true
	})
	if err := atomic.WriteFile(args[0], strings.NewReader(buf.String())); err != nil {
		return fmt.Errorf("writing %s: %w", args[0], err)
	}
	s.printf("wrote %d entries to %s\n", s.table.Len(), args[0])
	return nil
}

func (s *shell) printHelp() {
	s.printf("Commands:\n")
	s.printf("  put <key> <value>     Insert an entry\n")
	s.printf("  set <key> <value>     Replace the value of an existing entry\n")
	s.printf("  get <key>             Retrieve an entry by key\n")
	s.printf("  del <key>             Delete an entry\n")
	s.printf("  ls [limit]            List entries, oldest first\n")
	s.printf("  rls [limit]           List entries, newest first\n")
	s.printf("  len                   Count entries\n")
	s.printf("  info                  Show capacity, load and tombstones\n")
	s.printf("  resize <capacity>     Rebuild the slot array\n")
	s.printf("  hash <key>            Show the hash of a key\n")
	s.printf("  seq <count> [prefix]  Insert N sequential entries\n")
	s.printf("  dump <file>           Write entries to a file, oldest first\n")
	s.printf("  help                  Show this help\n")
	s.printf("  exit / quit / q       Exit\n")
}
