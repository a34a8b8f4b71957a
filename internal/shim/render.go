package shim

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/sibikrish3000/cargowin/pkg/bridge"
)

// Render prints inv as a line that can be pasted into a WSL bash to run the
// same host invocation.
func Render(inv *Invocation) (string, error) {
	var words []string
	quote := func(s string) (string, error) {
		q, err := syntax.Quote(s, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("cannot quote %q: %w", s, err)
		}
		return q, nil
	}
	add := func(s string) error {
		q, err := quote(s)
		if err != nil {
			return err
		}
		words = append(words, q)
		return nil
	}
	// Only the value is quoted; a quoted NAME= would not be an assignment.
	assign := func(name, value string) error {
		q, err := quote(value)
		if err != nil {
			return err
		}
		words = append(words, name+"="+q)
		return nil
	}

	if inv.Plan.Dir != "" {
		if err := add(inv.Plan.Dir); err != nil {
			return "", err
		}
		words = append([]string{"cd"}, words...)
		words = append(words, "&&")
	}

	for _, v := range inv.Env.Vars() {
		if err := assign(v.Name, v.Value); err != nil {
			return "", err
		}
	}
	if err := assign(bridge.WSLENVName, inv.Env.WSLENV()); err != nil {
		return "", err
	}

	name, args := inv.Plan.Argv()
	for _, w := range append([]string{name}, args...) {
		if err := add(w); err != nil {
			return "", err
		}
	}

	return strings.Join(words, " "), nil
}
