package device

import (
	"fmt"
	"strings"

	"github.com/urmzd/vanhub/pkg/action"
)

// ParseInstruction reads "<device name> <action> [level]", e.g. "living room set 3".
// Device names may span several words; the longest registered name that
// prefixes the text wins. Matching is case-insensitive.
func (r *Registry) ParseInstruction(text string) (Device, action.Action, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return Device{}, action.Action{}, fmt.Errorf("%w: empty instruction", action.ErrParse)
	}

	var (
		dev  Device
		rest []string
		ok   bool
	)
	for n := len(words); n > 0; n-- {
		if e, found := r.byName[strings.Join(words[:n], " ")]; found {
			dev, rest, ok = e.dev, words[n:], true
			break
		}
	}
	if !ok {
		return Device{}, action.Action{}, fmt.Errorf("%w: no device named in %q", ErrNotFound, text)
	}

	if len(rest) == 0 {
		return dev, action.Action{}, fmt.Errorf("%w: missing action for %q", action.ErrParse, dev.Name)
	}
	kind, err := action.ParseWord(rest[0])
	if err != nil {
		return dev, action.Action{}, err
	}

	var level *int
	switch len(rest) {
	case 1:
	case 2:
		n, err := action.ParseLevel(rest[1])
		if err != nil {
			return dev, action.Action{}, err
		}
		level = &n
	default:
		return dev, action.Action{}, fmt.Errorf("%w: unexpected %q after level", action.ErrParse, strings.Join(rest[2:], " "))
	}

	a, err := action.Build(kind, level)
	if err != nil {
		return dev, action.Action{}, err
	}
	return dev, a, nil
}
