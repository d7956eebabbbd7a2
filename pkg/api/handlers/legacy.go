package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/dispatch"
	"github.com/urmzd/vanhub/pkg/wireless"
)

// LegacyHandler serves the plain-text endpoints used by the van's existing
// shortcuts and slider page.
type LegacyHandler struct {
	intake       *dispatch.Intake
	legacyErrors bool
}

// NewLegacyHandler creates a legacy handler. With legacyErrors set every
// failure is answered with 200 OK, as older clients expect.
func NewLegacyHandler(intake *dispatch.Intake, legacyErrors bool) *LegacyHandler {
	return &LegacyHandler{intake: intake, legacyErrors: legacyErrors}
}

// Index handles GET /
func (h *LegacyHandler) Index(c *gin.Context) {
	c.String(http.StatusOK, "Nothing here!")
}

// Command handles GET /command. It accepts either
// instruction=<device> <action> [level] or the device, action and target
// parameters of /parsed_command.
func (h *LegacyHandler) Command(c *gin.Context) {
	if text, ok := c.GetQuery("instruction"); ok {
		h.instruction(c, text)
		return
	}
	h.parsed(c)
}

// ParsedCommand handles GET /parsed_command
func (h *LegacyHandler) ParsedCommand(c *gin.Context) {
	h.parsed(c)
}

// Sliders handles GET /sliders: one digit per device in configuration order.
func (h *LegacyHandler) Sliders(c *gin.Context) {
	c.String(http.StatusOK, wireless.Levels(c.Request.Context(), h.intake))
}

func (h *LegacyHandler) parsed(c *gin.Context) {
	ref := strings.TrimSpace(c.Query("device"))
	if ref == "" {
		h.oops(c, fmt.Errorf("%w: missing device", action.ErrParse), "we didn't get the Device")
		return
	}
	d, err := h.intake.Registry().Resolve(ref)
	if err != nil {
		h.oops(c, err, fmt.Sprintf("there is no device called %q", ref))
		return
	}

	word := strings.TrimSpace(c.Query("action"))
	if word == "" {
		h.oops(c, fmt.Errorf("%w: missing action", action.ErrParse), "we didn't get the Action")
		return
	}
	kind, err := action.ParseWord(word)
	if err != nil {
		h.oops(c, err, "Action was invalid")
		return
	}

	var level *int
	if t := strings.TrimSpace(c.Query("target")); t != "" {
		n, err := action.ParseLevel(t)
		if err != nil {
			h.oops(c, err, "Target should be 0 <= t < 8")
			return
		}
		level = &n
	}

	a, err := action.Build(kind, level)
	if err != nil {
		h.oops(c, err, "set needs a Target, 0 through 7")
		return
	}
	h.submit(c, d, a)
}

func (h *LegacyHandler) instruction(c *gin.Context, text string) {
	if strings.TrimSpace(text) == "" {
		h.oops(c, fmt.Errorf("%w: empty instruction", action.ErrParse), "we didn't get the instruction")
		return
	}

	d, a, err := h.intake.Registry().ParseInstruction(text)
	if err != nil {
		h.oops(c, err, instructionProblem(err))
		return
	}
	h.submit(c, d, a)
}

func instructionProblem(err error) string {
	switch {
	case errors.Is(err, device.ErrNotFound):
		return "we didn't get a device!"
	case errors.Is(err, action.ErrOutOfRange):
		return "Target should be 0 <= t < 8"
	}
	return err.Error()
}

func (h *LegacyHandler) submit(c *gin.Context, d device.Device, a action.Action) {
	receipt, err := h.intake.Submit(d.ID, a)
	if err != nil {
		h.oops(c, err, err.Error())
		return
	}
	c.JSON(http.StatusOK, commandResponse(receipt))
}

func (h *LegacyHandler) oops(c *gin.Context, err error, msg string) {
	code, _ := errorStatus(err)
	if h.legacyErrors {
		code = http.StatusOK
	}
	log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected legacy request")
	c.String(code, "Oops, "+msg)
}
