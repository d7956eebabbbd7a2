package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/api/types"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/dispatch"
	"github.com/urmzd/vanhub/pkg/mailbox"
)

// errorStatus maps a hub error to an HTTP status and a short error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, action.ErrOutOfRange):
		return http.StatusBadRequest, "out_of_range"
	case errors.Is(err, action.ErrParse):
		return http.StatusBadRequest, "parse_error"
	case errors.Is(err, device.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, dispatch.ErrInquiryTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, device.ErrUnreachable), errors.Is(err, device.ErrNotConnected):
		return http.StatusBadGateway, "device_unreachable"
	case errors.Is(err, mailbox.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(c *gin.Context, err error) {
	code, kind := errorStatus(err)
	c.JSON(code, types.ErrorResponse{
		Error:   kind,
		Message: err.Error(),
	})
}

func commandResponse(r dispatch.Receipt) types.CommandResponse {
	resp := types.CommandResponse{
		ID:         r.ID,
		DeviceID:   r.DeviceID.String(),
		Device:     r.Device,
		Action:     r.Action.Word(),
		AcceptedAt: r.Accepted,
	}
	if lvl, ok := r.Action.Target(); ok {
		resp.Target = &lvl
	}
	return resp
}
