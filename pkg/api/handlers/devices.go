package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/vanhub/pkg/api/types"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/dispatch"
)

// DevicesHandler handles device lookup endpoints
type DevicesHandler struct {
	intake *dispatch.Intake
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(intake *dispatch.Intake) *DevicesHandler {
	return &DevicesHandler{intake: intake}
}

// ListDevices handles GET /devices
// @Summary      List all devices
// @Description  Returns every configured device with its last-known level. No device is contacted.
// @Tags         devices
// @Produce      json
// @Success      200  {object}  types.ListDevicesResponse
// @Router       /devices [get]
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	statuses := h.intake.Registry().Statuses()

	result := make([]types.DeviceWithLevel, 0, len(statuses))
	for _, s := range statuses {
		result = append(result, deviceWithLevel(s))
	}

	c.JSON(http.StatusOK, types.ListDevicesResponse{
		Devices: result,
		Count:   len(result),
	})
}

// GetDevice handles GET /devices/:id
// @Summary      Get device details
// @Description  Returns a device by uuid, name or two-letter abbreviation
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device uuid, name or abbreviation"
// @Success      200  {object}  types.DeviceResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id} [get]
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	reg := h.intake.Registry()

	d, err := reg.Resolve(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := reg.Status(d.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.DeviceResponse{Device: deviceWithLevel(s)})
}

// GetLevel handles GET /devices/:id/level
// @Summary      Read device level
// @Description  Asks the device for its current level through the dispatcher. When the device does not answer in time the last-known level is returned with stale set.
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device uuid, name or abbreviation"
// @Success      200  {object}  types.LevelResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Failure      502  {object}  types.LevelResponse  "Device unreachable"
// @Failure      504  {object}  types.LevelResponse  "Device did not answer in time"
// @Router       /devices/{id}/level [get]
func (h *DevicesHandler) GetLevel(c *gin.Context) {
	d, err := h.intake.Registry().Resolve(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	reading, err := h.intake.Inquire(c.Request.Context(), d.ID)
	resp := types.LevelResponse{
		DeviceID:  reading.DeviceID.String(),
		Device:    reading.Device,
		Level:     reading.Level,
		Known:     reading.Known,
		Stale:     reading.Stale,
		Timestamp: time.Now(),
	}
	if err != nil {
		code, _ := errorStatus(err)
		resp.Error = err.Error()
		c.JSON(code, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func deviceWithLevel(s device.Status) types.DeviceWithLevel {
	return types.DeviceWithLevel{
		ID:      s.ID.String(),
		Name:    s.Name,
		Abbrev:  s.Abbrev,
		Address: s.Address,
		Level:   s.Level,
		Known:   s.Known,
	}
}
