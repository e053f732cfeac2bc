package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // crash path only
	LevelPhase        // check + stage spans
	LevelDetail       // per-file and per-query spans
	LevelDebug        // every resolver and instantiation step
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// deepest scope each level lets through; zero means none
var levelReach = [...]Scope{
	LevelPhase:  ScopePass,
	LevelDetail: ScopeUnit,
	LevelDebug:  ScopeNode,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if name == want {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q, want one of %s", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events at scope pass the level filter.
// Heartbeats are let through by the sinks themselves.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levelReach) {
		return false
	}
	return scope <= levelReach[l]
}
