package command

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/workbench/internal/event"
)

// MaxRecent caps the empty-query recent list.
const MaxRecent = 20

// ChannelCommandRan is the bus channel a run is announced on.
const ChannelCommandRan = "command-ran"

// RanPayload is published on ChannelCommandRan. ClientID carries the
// requesting client's identity so subscribers can filter the event back
// to the same client.
type RanPayload struct {
	CommandID string
	ClientID  string
}

// Registry holds every registered command plus the global and per-type
// search indexes, built incrementally as commands are added.
type Registry struct {
	mu     sync.RWMutex
	list   []Command
	byID   map[string]int
	global *index
	byType map[Type]*index

	bus *event.Bus
	log *slog.Logger
}

// NewRegistry creates an empty command registry.
func NewRegistry(bus *event.Bus, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		byID:   make(map[string]int),
		global: newIndex(),
		byType: make(map[Type]*index),
		bus:    bus,
		log:    log,
	}
}

// Add registers a command. Hidden commands skip every search index but
// stay runnable and lookupable by id.
func (r *Registry) Add(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[cmd.ID]; ok {
		return ErrDuplicate
	}
	r.byID[cmd.ID] = len(r.list)
	r.list = append(r.list, cmd)

	if cmd.Hidden {
		return nil
	}
	r.global.add(cmd.ID, cmd.Label)
	ix, ok := r.byType[cmd.Type]
	if !ok {
		ix = newIndex()
		r.byType[cmd.Type] = ix
	}
	ix.add(cmd.ID, cmd.Label)
	return nil
}

// Get looks up a command by id.
func (r *Registry) Get(id string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return Command{}, false
	}
	return r.list[i], true
}

// Search resolves a query against the registry. A single leading symbol
// scopes the search to one type ('?' help, '>' action, '<' project,
// '&' package, '~' config, '$' script); no or an unrecognized symbol
// searches globally. An empty post-prefix query returns the recent list
// instead of a search.
func (r *Registry) Search(query string) []Command {
	scoped := false
	var scope Type
	if len(query) > 0 {
		if t, ok := prefixTypes[query[0]]; ok {
			scoped = true
			scope = t
			query = query[1:]
		}
	}

	if strings.TrimSpace(query) == "" {
		return r.recent(scoped, scope)
	}

	r.mu.RLock()
	ix := r.global
	if scoped {
		ix = r.byType[scope]
	}
	r.mu.RUnlock()
	if ix == nil {
		return nil
	}

	ids := ix.search(query)
	result := make([]Command, 0, len(ids))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		if i, ok := r.byID[id]; ok {
			result = append(result, r.list[i])
		}
	}
	return result
}

// recent returns up to MaxRecent commands: hidden commands are always
// excluded, the unscoped list also excludes help commands. Commands with
// a last-used timestamp rank above those without, newest first; commands
// without one keep their registration order.
func (r *Registry) recent(scoped bool, scope Type) []Command {
	r.mu.RLock()
	candidates := make([]Command, 0, len(r.list))
	for _, cmd := range r.list {
		if cmd.Hidden {
			continue
		}
		if scoped {
			if cmd.Type != scope {
				continue
			}
		} else if cmd.Type == TypeHelp {
			continue
		}
		candidates = append(candidates, cmd)
	}
	r.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := candidates[i].LastUsed, candidates[j].LastUsed
		switch {
		case !ti.IsZero() && !tj.IsZero():
			return ti.After(tj)
		case !ti.IsZero():
			return true
		default:
			return false
		}
	})

	if len(candidates) > MaxRecent {
		candidates = candidates[:MaxRecent]
	}
	return candidates
}

// Run executes a command by id on behalf of a client. An unknown id is
// logged and reported via ok=false. The run is announced on the bus
// whether or not the command declares a handler.
func (r *Registry) Run(id, clientID string) (Command, bool) {
	r.mu.Lock()
	i, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		r.log.Warn("unknown command", "command", id, "client", clientID)
		return Command{}, false
	}
	r.list[i].LastUsed = time.Now()
	cmd := r.list[i]
	r.mu.Unlock()

	if cmd.Handler != nil {
		cmd.Handler()
	}
	r.bus.Publish(ChannelCommandRan, RanPayload{CommandID: id, ClientID: clientID})
	return cmd, true
}
