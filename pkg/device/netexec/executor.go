// Package netexec talks to dimmer firmware over plain HTTP/1.1.
package netexec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/device/schema"
)

const maxBodyBytes = 4 << 10

// Executor sends actions to devices with
//
//	GET http://<addr>/command?uuid=<id>&action=<on|off|set>&target=<n>
//
// and reads levels with GET http://<addr>/status?uuid=<id>.
type Executor struct {
	client    *http.Client
	validator *schema.Validator
}

// New creates an Executor. A zero timeout leaves deadlines to the caller's context.
func New(timeout time.Duration) *Executor {
	return &Executor{
		client:    &http.Client{Timeout: timeout},
		validator: schema.NewValidator(),
	}
}

// Send implements device.Executor.
func (e *Executor) Send(ctx context.Context, d device.Device, a action.Action) error {
	q := url.Values{}
	q.Set("uuid", d.ID.String())
	q.Set("action", a.Word())
	target := ""
	if lvl, ok := a.Target(); ok {
		target = strconv.Itoa(lvl)
	}
	q.Set("target", target)

	body, err := e.get(ctx, d, "/command", q)
	if err != nil {
		return err
	}

	log.Debug().Str("device", d.Name).Str("action", a.String()).Str("reply", string(body)).Msg("Device accepted command")
	return nil
}

// Status implements device.Executor.
func (e *Executor) Status(ctx context.Context, d device.Device) (int, error) {
	q := url.Values{}
	q.Set("uuid", d.ID.String())

	body, err := e.get(ctx, d, "/status", q)
	if err != nil {
		return 0, err
	}

	if err := e.validator.ValidateJSON(schema.Status, body); err != nil {
		return 0, fmt.Errorf("%w: %s status: %w", device.ErrValidation, d.Name, err)
	}

	var st statusReply
	if err := json.Unmarshal(body, &st); err != nil {
		return 0, fmt.Errorf("%w: %s status: %w", device.ErrValidation, d.Name, err)
	}
	if st.UUID != d.ID.String() {
		return 0, fmt.Errorf("%w: %s answered for %s", device.ErrValidation, d.Name, st.UUID)
	}
	return st.Target, nil
}

type statusReply struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	Target int    `json:"target"`
}

func (e *Executor) get(ctx context.Context, d device.Device, path string, q url.Values) ([]byte, error) {
	u := url.URL{Scheme: "http", Host: d.Address, Path: path, RawQuery: q.Encode()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", d.Name, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", device.ErrUnreachable, d.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", device.ErrUnreachable, d.Name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", device.ErrUnreachable, d.Name, resp.Status)
	}
	return body, nil
}
