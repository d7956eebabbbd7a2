package mcp

import "github.com/mark3labs/mcp-go/mcp"

const deviceRefHelp = "Device name, two-letter abbreviation or uuid"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	// Health check
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of the van hub and the state of its request mailbox"),
		),
		s.handleGetHealth,
	)

	// List devices
	s.mcpServer.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List all configured dimmers with their last-known level (0-7)"),
		),
		s.handleListDevices,
	)

	// Get device
	s.mcpServer.AddTool(
		mcp.NewTool("get_device",
			mcp.WithDescription("Get a dimmer by name, abbreviation or uuid"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description(deviceRefHelp),
			),
		),
		s.handleGetDevice,
	)

	// Read level
	s.mcpServer.AddTool(
		mcp.NewTool("get_level",
			mcp.WithDescription("Ask a dimmer for its current level. Falls back to the last-known level if it does not answer in time."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description(deviceRefHelp),
			),
		),
		s.handleGetLevel,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_on",
			mcp.WithDescription("Turn a dimmer on"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description(deviceRefHelp),
			),
		),
		s.handleTurnOn,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_off",
			mcp.WithDescription("Turn a dimmer off"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description(deviceRefHelp),
			),
		),
		s.handleTurnOff,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_level",
			mcp.WithDescription("Set a dimmer to a level between 0 and 7"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description(deviceRefHelp),
			),
			mcp.WithNumber("level",
				mcp.Required(),
				mcp.Min(0),
				mcp.Max(7),
				mcp.Description("Target level, 0 (dimmest) to 7 (brightest)"),
			),
		),
		s.handleSetLevel,
	)

	// Free-text form, same grammar as the legacy HTTP instruction parameter
	s.mcpServer.AddTool(
		mcp.NewTool("send_instruction",
			mcp.WithDescription(`Send a free-text instruction such as "living room set 3" or "porch light off"`),
			mcp.WithString("instruction",
				mcp.Required(),
				mcp.Description("<device name> <on|off|set> [level]"),
			),
		),
		s.handleSendInstruction,
	)
}
