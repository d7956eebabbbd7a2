package wireless

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
)

// Request is a decoded write payload.
type Request struct {
	Device device.Device
	Action action.Action
}

// Decode reads a characteristic write. The compact form is DDAA[LL]: a two
// character device abbreviation, a two letter action and, for set, a two
// digit level ("lrse03"). Anything else is read as free text
// ("living room set 3").
func Decode(payload []byte, reg *device.Registry) (Request, error) {
	text := strings.Trim(string(payload), " \t\r\n\x00")
	if text == "" {
		return Request{}, fmt.Errorf("%w: empty payload", action.ErrParse)
	}

	req, compactErr := decodeCompact(text, reg)
	if compactErr == nil {
		return req, nil
	}

	dev, a, err := reg.ParseInstruction(text)
	if err == nil {
		return Request{Device: dev, Action: a}, nil
	}

	// report the compact error for payloads that look compact
	if !strings.ContainsRune(text, ' ') && !errors.Is(compactErr, errNotCompact) {
		return Request{}, compactErr
	}
	return Request{}, err
}

var errNotCompact = errors.New("not a compact payload")

func decodeCompact(text string, reg *device.Registry) (Request, error) {
	if len(text) != 4 && len(text) != 6 {
		return Request{}, errNotCompact
	}

	dev, err := reg.ByAbbrev(text[:device.AbbrevLen])
	if err != nil {
		return Request{}, errNotCompact
	}

	kind, err := action.DecodeAbbrev(text[2:4])
	if err != nil {
		return Request{}, err
	}

	var level *int
	if kind == action.KindSet {
		if len(text) != 6 {
			return Request{}, fmt.Errorf("%w: set needs a two-digit level", action.ErrParse)
		}
		n, err := action.ParseLevelField(text[4:6])
		if err != nil {
			return Request{}, err
		}
		level = &n
	} else if len(text) != 4 {
		return Request{}, fmt.Errorf("%w: %q takes no level", action.ErrParse, text[2:4])
	}

	a, err := action.Build(kind, level)
	if err != nil {
		return Request{}, err
	}
	return Request{Device: dev, Action: a}, nil
}
