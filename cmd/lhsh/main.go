// lhsh is an interactive shell for poking at a linkhash table keyed by
// strings.
//
// Usage:
//
//	lhsh [flags]
//
// Flags:
//
//	-c, --config     JSONC config file (text_hash, initial_capacity)
//	-n, --capacity   Initial slot capacity (overrides the config)
//	    --hash       Text hash algorithm: default or perllike (overrides the config)
//	    --history    History file (default: ~/.lhsh_history)
//
// Commands (in REPL):
//
//	put <key> <value>     Insert an entry
//	set <key> <value>     Replace the value of an existing entry
//	get <key>             Retrieve an entry by key
//	del <key>             Delete an entry
//	ls [limit]            List entries, oldest first
//	rls [limit]           List entries, newest first
//	len                   Count entries
//	info                  Show capacity, load and tombstones
//	resize <capacity>     Rebuild the slot array
//	hash <key>            Show the hash of a key
//	seq <count> [prefix]  Insert N sequential entries
//	dump <file>           Write entries to a file, oldest first
//	help                  Show this help
//	exit / quit / q       Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/linkhash"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath string
	capacity   int
	hash       string
	history    string
}

func parseFlags(args []string) (options, *flag.FlagSet, error) {
	var o options
	fs := flag.NewFlagSet("lhsh", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&o.configPath, "config", "c", "", "JSONC config file")
	fs.IntVarP(&o.capacity, "capacity", "n", 0, "initial slot capacity")
	fs.StringVar(&o.hash, "hash", "", "text hash algorithm (default, perllike)")
	fs.StringVar(&o.history, "history", defaultHistoryFile(), "history file")

	if err := fs.Parse(args); err != nil {
		return options{}, fs, err
	}
	if fs.NArg() > 0 {
		return options{}, fs, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, fs, nil
}

// loadConfig merges the config file and the command line, which wins.
func loadConfig(o options, fs *flag.FlagSet) (linkhash.Config, error) {
	cfg := linkhash.DefaultConfig()
	if o.configPath != "" {
		var err error
		cfg, err = linkhash.LoadConfig(o.configPath)
		if err != nil {
			return linkhash.Config{}, err
		}
	}
	if fs.Changed("capacity") {
		cfg.InitialCapacity = o.capacity
	}
	if fs.Changed("hash") {
		if err := cfg.TextHash.UnmarshalText([]byte(o.hash)); err != nil {
			return linkhash.Config{}, err
		}
	}
	return cfg, nil
}

func run(args []string) error {
	o, fs, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			var buf strings.Builder
			fs.SetOutput(&buf)
			fs.PrintDefaults()
			fmt.Printf("Usage: lhsh [flags]\n\n%s", buf.String())
			return nil
		}
		return err
	}

	cfg, err := loadConfig(o, fs)
	if err != nil {
		return err
	}

	sh, err := newShell(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer sh.table.Close()

	r := &repl{shell: sh, history: o.history}
	return r.Run()
}

// defaultHistoryFile returns the path to the history file.
func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lhsh_history")
}

// repl is the interactive command loop.
type repl struct {
	shell   *shell
	history string
	liner   *liner.State
}

// Run starts the REPL loop.
func (r *repl) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(completer)

	if r.history != "" {
		if f, err := os.Open(r.history); err == nil {
			_, _ = r.liner.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintf(r.shell.out, "lhsh - linkhash shell (capacity=%d, hash=%s)\n",
		r.shell.table.Capacity(), r.shell.cfg.TextHash)
	fmt.Fprintln(r.shell.out, "Type 'help' for available commands.")

	defer r.saveHistory()
	for {
		line, err := r.liner.Prompt("lhsh> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(r.shell.out, "\nBye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		if quit := r.shell.exec(line); quit {
			fmt.Fprintln(r.shell.out, "Bye!")
			return nil
		}
	}
}

// saveHistory persists command history to disk.
func (r *repl) saveHistory() {
	if r.history == "" {
		return
	}
	if f, err := os.Create(r.history); err == nil {
		_, _ = r.liner.WriteHistory(f)
		f.Close()
	}
}

// completer provides tab completion for commands.
func completer(line string) []string {
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commandNames {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}
