package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/api/types"
	"github.com/urmzd/vanhub/pkg/device/schema"
	"github.com/urmzd/vanhub/pkg/dispatch"
	"github.com/urmzd/vanhub/pkg/mailbox"
)

// ControlHandler handles device command endpoints
type ControlHandler struct {
	intake    *dispatch.Intake
	validator *schema.Validator
}

// NewControlHandler creates a new control handler
func NewControlHandler(intake *dispatch.Intake, validator *schema.Validator) *ControlHandler {
	return &ControlHandler{intake: intake, validator: validator}
}

// SendCommand handles POST /devices/:id/command
// @Summary      Send a command
// @Description  Posts on, off or set to the mailbox. The command is delivered asynchronously; a newer command posted before the dispatcher runs replaces it.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Device uuid, name or abbreviation"
// @Param        request  body      types.CommandRequest  true  "Command"
// @Success      202      {object}  types.CommandResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      404      {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id}/command [post]
func (h *ControlHandler) SendCommand(c *gin.Context) {
	d, err := h.intake.Registry().Resolve(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	if err := h.validator.ValidateJSON(schema.Command, body); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	var a action.Action
	if err := json.Unmarshal(body, &a); err != nil {
		writeError(c, err)
		return
	}

	receipt, err := h.intake.Submit(d.ID, a)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, commandResponse(receipt))
}

// Mailbox handles GET /mailbox
// @Summary      Inspect the mailbox
// @Description  Returns a snapshot of the single request slot shared by the front-ends and the dispatcher
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  types.MailboxResponse
// @Router       /mailbox [get]
func (h *ControlHandler) Mailbox(c *gin.Context) {
	ex := h.intake.Mailbox()

	resp := types.MailboxResponse{State: ex.Kind.String()}
	if ex.Kind != mailbox.Idle {
		posted := ex.Posted
		resp.ID = ex.ID
		resp.DeviceID = ex.DeviceID.String()
		resp.Posted = &posted
	}
	switch ex.Kind {
	case mailbox.CommandPending:
		resp.Action = ex.Action.String()
	case mailbox.InquiryAnswered:
		if ex.Err != nil {
			resp.Error = ex.Err.Error()
		} else {
			lvl := ex.Level
			resp.Level = &lvl
		}
	}

	c.JSON(http.StatusOK, resp)
}
