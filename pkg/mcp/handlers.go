package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/vanhub/pkg/action"
	"github.com/urmzd/vanhub/pkg/device"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := GetHealthOutput{
		Status:    "healthy",
		Devices:   s.intake.Registry().Len(),
		Mailbox:   s.intake.Mailbox().Kind.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses := s.intake.Registry().Statuses()

	infos := make([]DeviceInfo, 0, len(statuses))
	for _, st := range statuses {
		infos = append(infos, StatusToInfo(st))
	}

	out := ListDevicesOutput{
		Devices: infos,
		Count:   len(infos),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.resolve(request)
	if errResult != nil {
		return errResult, nil
	}

	st, err := s.intake.Registry().Status(d.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("device not found: %s", err)), nil
	}

	out := GetDeviceOutput{Device: StatusToInfo(st)}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.resolve(request)
	if errResult != nil {
		return errResult, nil
	}

	reading, err := s.intake.Inquire(ctx, d.ID)
	out := GetLevelOutput{
		DeviceID: reading.DeviceID.String(),
		Device:   reading.Device,
		Level:    reading.Level,
		Known:    reading.Known,
		Stale:    reading.Stale,
	}
	if err != nil {
		if !reading.Known {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read level of %s: %s", d.Name, err)), nil
		}
		out.Warning = err.Error()
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleTurnOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.submit(request, action.On())
}

func (s *Server) handleTurnOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.submit(request, action.Off())
}

func (s *Server) handleSetLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["level"]
	if !ok || raw == nil {
		return mcp.NewToolResultError(`required parameter "level" is missing`), nil
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return mcp.NewToolResultError(`parameter "level" must be a whole number`), nil
	}

	a, err := action.Set(int(f))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.submit(request, a)
}

func (s *Server) handleSendInstruction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := requiredString(request, "instruction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, a, err := s.intake.Registry().ParseInstruction(text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("could not understand %q: %s", text, err)), nil
	}

	receipt, err := s.intake.Submit(d.ID, a)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to queue command: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(receiptToOutput(receipt))), nil
}

// --- helpers ---

func (s *Server) submit(request mcp.CallToolRequest, a action.Action) (*mcp.CallToolResult, error) {
	d, errResult := s.resolve(request)
	if errResult != nil {
		return errResult, nil
	}

	receipt, err := s.intake.Submit(d.ID, a)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to queue command: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(receiptToOutput(receipt))), nil
}

func (s *Server) resolve(request mcp.CallToolRequest) (device.Device, *mcp.CallToolResult) {
	id, err := requiredString(request, "id")
	if err != nil {
		return device.Device{}, mcp.NewToolResultError(err.Error())
	}
	d, err := s.intake.Registry().Resolve(id)
	if err != nil {
		return device.Device{}, mcp.NewToolResultError(fmt.Sprintf("device not found: %s", err))
	}
	return d, nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
