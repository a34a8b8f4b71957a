package bridge

import (
	"strings"

	"github.com/samber/lo"
)

// WSLENVName is the variable WSL consults to decide which variables cross
// the WSL/Win32 boundary.
const WSLENVName = "WSLENV"

// WSLENV flag constants.
// See: https://learn.microsoft.com/windows/wsl/filesystems#share-environment-variables-between-windows-and-wsl-with-wslenv
const (
	// FlagTranslatePath translates the value between WSL and Win32 path formats.
	FlagTranslatePath = "p"
	// FlagTranslatePathList translates a list of paths.
	FlagTranslatePathList = "l"
	// FlagToUnix includes the value only when invoking WSL from Win32.
	FlagToUnix = "u"
	// FlagToWin includes the value only when invoking Win32 from WSL.
	FlagToWin = "w"
)

// Entry is one NAME/flags item of the WSLENV list.
type Entry struct {
	Name  string
	Flags string
}

// String renders the entry as it appears in WSLENV.
func (e Entry) String() string {
	if e.Flags == "" {
		return e.Name
	}
	return e.Name + "/" + e.Flags
}

// ParseWSLENV splits a WSLENV value into entries. Empty items are dropped.
func ParseWSLENV(value string) []Entry {
	var entries []Entry
	for _, item := range strings.Split(value, ":") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, flags, _ := strings.Cut(item, "/")
		if name == "" {
			continue
		}
		entries = append(entries, Entry{Name: name, Flags: strings.ReplaceAll(flags, "/", "")})
	}
	return entries
}

// FormatWSLENV joins entries into a WSLENV value.
func FormatWSLENV(entries []Entry) string {
	return strings.Join(lo.Map(entries, func(e Entry, _ int) string { return e.String() }), ":")
}

// MergeWSLENV returns existing with add merged in. An added entry replaces
// an existing one of the same name in place; new names are appended in
// order. The result never contains duplicate names.
func MergeWSLENV(existing []Entry, add ...Entry) []Entry {
	merged := lo.UniqBy(existing, func(e Entry) string { return e.Name })
	for _, a := range add {
		_, idx, found := lo.FindIndexOf(merged, func(e Entry) bool { return e.Name == a.Name })
		if found {
			merged[idx] = a
			continue
		}
		merged = append(merged, a)
	}
	return merged
}

// Var is a variable set on the host child.
type Var struct {
	Name  string
	Value string
}

// Environment collects the variables a host invocation depends on together
// with the WSLENV entries that carry them across the boundary. The guest's
// own WSLENV entries are kept.
type Environment struct {
	vars      []Var
	propagate []Entry
}

// NewEnvironment starts from the guest's current WSLENV value.
func NewEnvironment(guestWSLENV string) *Environment {
	return &Environment{propagate: ParseWSLENV(guestWSLENV)}
}

// Set records name=value and marks it for propagation with flags.
// Setting the same name twice keeps the last value.
func (e *Environment) Set(name, value, flags string) {
	_, idx, found := lo.FindIndexOf(e.vars, func(v Var) bool { return v.Name == name })
	if found {
		e.vars[idx].Value = value
	} else {
		e.vars = append(e.vars, Var{Name: name, Value: value})
	}
	e.propagate = MergeWSLENV(e.propagate, Entry{Name: name, Flags: flags})
}

// Lookup returns the value recorded for name.
func (e *Environment) Lookup(name string) (string, bool) {
	v, ok := lo.Find(e.vars, func(v Var) bool { return v.Name == name })
	return v.Value, ok
}

// Vars returns the recorded variables in the order they were first set.
func (e *Environment) Vars() []Var {
	return append([]Var(nil), e.vars...)
}

// WSLENV returns the propagation list value.
func (e *Environment) WSLENV() string {
	return FormatWSLENV(e.propagate)
}

// Apply returns base (a KEY=VALUE slice, usually os.Environ()) with every
// recorded variable and WSLENV overridden.
func (e *Environment) Apply(base []string) []string {
	overridden := make(map[string]bool, len(e.vars)+1)
	overridden[WSLENVName] = true
	for _, v := range e.vars {
		overridden[v.Name] = true
	}

	env := lo.Filter(base, func(kv string, _ int) bool {
		name, _, _ := strings.Cut(kv, "=")
		return !overridden[name]
	})
	for _, v := range e.vars {
		env = append(env, v.Name+"="+v.Value)
	}
	if wslenv := e.WSLENV(); wslenv != "" {
		env = append(env, WSLENVName+"="+wslenv)
	}
	return env
}
