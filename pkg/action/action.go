package action

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the operations a dimmer understands.
type Kind uint8

const (
	KindOn Kind = iota + 1
	KindOff
	KindSet
)

// MaxLevel is the exclusive upper bound of a dimmer level.
const MaxLevel = 8

// Two-letter abbreviations used by the wireless payload.
const (
	abbrevOn  = "on"
	abbrevOff = "of"
	abbrevSet = "se"
)

// Action is a device operation. The zero value is invalid.
// Level is only meaningful for KindSet and is always in [0, MaxLevel).
type Action struct {
	kind  Kind
	level int
}

// On returns the turn-on action.
func On() Action { return Action{kind: KindOn} }

// Off returns the turn-off action.
func Off() Action { return Action{kind: KindOff} }

// Set returns a set-to-level action. Levels outside [0, MaxLevel) are rejected.
func Set(level int) (Action, error) {
	if err := checkLevel(level); err != nil {
		return Action{}, err
	}
	return Action{kind: KindSet, level: level}, nil
}

// MustSet is like Set but panics on an invalid level. Intended for constants and tests.
func MustSet(level int) Action {
	a, err := Set(level)
	if err != nil {
		panic(err)
	}
	return a
}

// Kind returns the operation kind.
func (a Action) Kind() Kind { return a.kind }

// Target returns the level of a Set action.
func (a Action) Target() (int, bool) {
	if a.kind != KindSet {
		return 0, false
	}
	return a.level, true
}

// IsValid reports whether a was built through one of the constructors.
func (a Action) IsValid() bool {
	switch a.kind {
	case KindOn, KindOff:
		return a.level == 0
	case KindSet:
		return a.level >= 0 && a.level < MaxLevel
	}
	return false
}

// Word returns the free-text / device protocol word: on, off or set.
func (a Action) Word() string {
	switch a.kind {
	case KindOn:
		return "on"
	case KindOff:
		return "off"
	case KindSet:
		return "set"
	}
	return ""
}

// Encode returns the compact wireless form: "on", "of" or "se" followed by a
// two-digit level.
func (a Action) Encode() string {
	switch a.kind {
	case KindOn:
		return abbrevOn
	case KindOff:
		return abbrevOff
	case KindSet:
		return fmt.Sprintf("%s%02d", abbrevSet, a.level)
	}
	return ""
}

func (a Action) String() string {
	if a.kind == KindSet {
		return fmt.Sprintf("set %d", a.level)
	}
	if w := a.Word(); w != "" {
		return w
	}
	return "invalid"
}

// Decode parses the compact form produced by Encode. Matching is case-insensitive.
func Decode(s string) (Action, error) {
	s = strings.ToLower(s)
	if len(s) < 2 {
		return Action{}, fmt.Errorf("%w: action %q too short", ErrParse, s)
	}
	abbr, rest := s[:2], s[2:]
	switch abbr {
	case abbrevOn, abbrevOff:
		if rest != "" {
			return Action{}, fmt.Errorf("%w: %q takes no level", ErrParse, abbr)
		}
		if abbr == abbrevOn {
			return On(), nil
		}
		return Off(), nil
	case abbrevSet:
		level, err := ParseLevelField(rest)
		if err != nil {
			return Action{}, err
		}
		return Set(level)
	}
	return Action{}, fmt.Errorf("%w: unknown action abbreviation %q", ErrParse, abbr)
}

// DecodeAbbrev parses only the two-letter action prefix; the caller supplies the
// level for set separately. It is used by the fixed-width wireless scheme.
func DecodeAbbrev(abbr string) (Kind, error) {
	switch strings.ToLower(abbr) {
	case abbrevOn:
		return KindOn, nil
	case abbrevOff:
		return KindOff, nil
	case abbrevSet:
		return KindSet, nil
	}
	return 0, fmt.Errorf("%w: unknown action abbreviation %q", ErrParse, abbr)
}

// ParseWord parses a free-text action word (on, off, set), case-insensitive.
func ParseWord(word string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "on":
		return KindOn, nil
	case "off":
		return KindOff, nil
	case "set":
		return KindSet, nil
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrParse, word)
}

// Build combines a kind and an optional level into an Action. A level is required
// for KindSet and ignored otherwise, matching the legacy HTTP form where target may
// accompany on/off.
func Build(kind Kind, level *int) (Action, error) {
	switch kind {
	case KindOn:
		return On(), nil
	case KindOff:
		return Off(), nil
	case KindSet:
		if level == nil {
			return Action{}, fmt.Errorf("%w: set requires a target level", ErrParse)
		}
		return Set(*level)
	}
	return Action{}, fmt.Errorf("%w: unknown action kind %d", ErrParse, kind)
}

// ParseLevel parses a decimal level and checks its range. Values are never clamped.
func ParseLevel(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: level %q is not a number", ErrParse, s)
	}
	if err := checkLevel(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ParseLevelField parses the fixed two-digit level of the compact forms, e.g.
// "03". Signs, spaces and other widths are rejected.
func ParseLevelField(s string) (int, error) {
	if len(s) != 2 || !isDigit(s[0]) || !isDigit(s[1]) {
		return 0, fmt.Errorf("%w: set needs a two-digit level, got %q", ErrParse, s)
	}
	n := int(s[0]-'0')*10 + int(s[1]-'0')
	if err := checkLevel(n); err != nil {
		return 0, err
	}
	return n, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func checkLevel(n int) error {
	if n < 0 || n >= MaxLevel {
		return fmt.Errorf("%w: level %d not in [0,%d)", ErrOutOfRange, n, MaxLevel)
	}
	return nil
}

type wireAction struct {
	Action string `json:"action"`
	Target *int   `json:"target,omitempty"`
}

// MarshalJSON renders {"action":"set","target":3}.
func (a Action) MarshalJSON() ([]byte, error) {
	w := wireAction{Action: a.Word()}
	if lvl, ok := a.Target(); ok {
		w.Target = &lvl
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the form written by MarshalJSON.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := ParseWord(w.Action)
	if err != nil {
		return err
	}
	parsed, err := Build(kind, w.Target)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
