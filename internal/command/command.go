// Package command implements the host's command registry: a
// type-partitioned, incrementally-built search index over user-facing
// commands contributed by plugins and the host, with recency-based
// fallback ranking and single-symbol type-scoped query dispatch.
package command

import (
	"errors"
	"time"
)

// Type classifies a command for type-scoped search.
type Type int

// Command types.
const (
	TypeHelp Type = iota
	TypeAction
	TypeProject
	TypePackage
	TypeConfig
	TypeScript
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeHelp:
		return "help"
	case TypeAction:
		return "action"
	case TypeProject:
		return "project"
	case TypePackage:
		return "package"
	case TypeConfig:
		return "config"
	case TypeScript:
		return "script"
	default:
		return "unknown"
	}
}

// prefixTypes maps a leading query symbol to its type scope.
var prefixTypes = map[byte]Type{
	'?': TypeHelp,
	'>': TypeAction,
	'<': TypeProject,
	'&': TypePackage,
	'~': TypeConfig,
	'$': TypeScript,
}

// Handler runs a command. Invoked with no arguments.
type Handler func()

// Command is a searchable, runnable unit of functionality. Commands are
// added once and never removed; only LastUsed changes, set by Run.
type Command struct {
	ID          string
	Type        Type
	Label       string
	Icon        string
	Description string

	// Hidden excludes the command from every search index; it stays
	// runnable and lookupable by id.
	Hidden bool

	// LastUsed is the zero time until the command has been run.
	LastUsed time.Time

	Handler Handler
}

// ErrDuplicate is returned when a command id is added twice.
var ErrDuplicate = errors.New("command already registered")
