package hook

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the extension point a hook is registered on.
type Kind uint8

const (
	KindCommand Kind = iota
	KindCommandRun
	KindTimer
	KindFd
	KindProcess
	KindConnect
	KindLine
	KindSignal
	KindHsignal
	KindConfig
	KindCompletion
	KindModifier
	KindInfo
	KindInfoHashtable
	KindInfolist
	KindHdata
	KindFocus

	numKinds
)

var kindNames = [numKinds]string{
	KindCommand:       "command",
	KindCommandRun:    "command_run",
	KindTimer:         "timer",
	KindFd:            "fd",
	KindProcess:       "process",
	KindConnect:       "connect",
	KindLine:          "line",
	KindSignal:        "signal",
	KindHsignal:       "hsignal",
	KindConfig:        "config",
	KindCompletion:    "completion",
	KindModifier:      "modifier",
	KindInfo:          "info",
	KindInfoHashtable: "info_hashtable",
	KindInfolist:      "infolist",
	KindHdata:         "hdata",
	KindFocus:         "focus",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for k := range out {
		out[k] = Kind(k)
	}
	return out
}

// State is the lifecycle state of a hook. Transitions only move forward:
// Active, then SoftDeleted on unregistration, then Freed on sweep.
type State uint8

const (
	StateActive State = iota
	StateSoftDeleted
	StateFreed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSoftDeleted:
		return "deleted"
	case StateFreed:
		return "freed"
	}
	return fmt.Sprintf("State(%d)", s)
}

// DefaultPriority is the priority of hooks registered without one.
const DefaultPriority = 1000

// Key orders hooks within a kind: higher priority first. For commands the
// name is the primary key.
type Key struct {
	Priority int
	Name     string
}

// ParsePriority splits an optional "priority|" prefix from name. Without a
// valid prefix the priority is DefaultPriority and name is unchanged.
func ParsePriority(name string) Key {
	prefix, rest, ok := strings.Cut(name, "|")
	if ok {
		if n, err := strconv.Atoi(prefix); err == nil {
			return Key{Priority: n, Name: rest}
		}
	}
	return Key{Priority: DefaultPriority, Name: name}
}

// key resolves the priority of a registration: an explicit non-zero
// priority wins, otherwise a "priority|" prefix in name, otherwise the
// default.
func key(priority int, name string) Key {
	k := ParsePriority(name)
	if priority != 0 {
		k.Priority = priority
	}
	return k
}
