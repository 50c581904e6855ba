// Package repl is the interactive front end of the host tool: a registry of
// named commands with shell-style argument splitting, and a session that
// binds those commands to a simulated board.
package repl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/shlex"
)

var (
	// ErrUnknownCommand is returned for a name nothing was registered under
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command gets too few arguments
	ErrUsage = errors.New("usage")

	// ErrQuit is returned by the quit command to end the read loop
	ErrQuit = errors.New("quit")
)

// Handler runs a command. args excludes the command name.
type Handler func(args []string) error

// Command is one REPL command
type Command struct {
	Name    string
	Usage   string // argument synopsis, e.g. "<a|b|c> [value]"
	Help    string
	MinArgs int
	Handler Handler
}

// Registry holds all registered commands
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	aliases  map[string]string
	help     string // rendered help text
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command. A second registration under the same name is
// ignored, as is a nil handler.
func (r *Registry) Register(cmd Command) {
	if cmd.Handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; exists {
		return
	}
	c := cmd
	r.commands[cmd.Name] = &c

	r.rebuildHelp()
}

// Alias makes alias resolve to an already registered command.
func (r *Registry) Alias(alias, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = name
}

// Lookup returns the command registered under name or one of its aliases.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Help returns one line per command, sorted by name
func (r *Registry) Help() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.help
}

// Execute splits line like a shell would and runs the named command. Blank
// lines and lines starting with '#' do nothing.
func (r *Registry) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return nil
	}
	fields, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := r.Lookup(fields[0])
	if !ok {
		return fmt.Errorf("%w: %s (type 'help' for available commands)", ErrUnknownCommand, fields[0])
	}
	args := fields[1:]
	if len(args) < cmd.MinArgs {
		return fmt.Errorf("%w: %s %s", ErrUsage, cmd.Name, cmd.Usage)
	}
	return cmd.Handler(args)
}

// rebuildHelp renders the help text
// Must be called with lock held
func (r *Registry) rebuildHelp() {
	names := make([]string, 0, len(r.commands))
	width := 0
	for name, cmd := range r.commands {
		names = append(names, name)
		if w := len(name) + 1 + len(cmd.Usage); w > width {
			width = w
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		cmd := r.commands[name]
		synopsis := strings.TrimSpace(name + " " + cmd.Usage)
		fmt.Fprintf(&b, "  %-*s  %s\n", width, synopsis, cmd.Help)
	}
	r.help = b.String()
}
