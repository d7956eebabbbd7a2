package schema

import "encoding/json"

// Status is the body returned by the dimmer firmware on GET /status.
var Status = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"uuid": {"type": "string", "format": "uuid"},
		"name": {"type": "string"},
		"target": {"type": "integer", "minimum": 0, "maximum": 7}
	},
	"required": ["uuid", "target"]
}`)

// Command is the body accepted by POST /api/v1/devices/{id}/command.
var Command = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"action": {"type": "string", "enum": ["on", "off", "set", "ON", "OFF", "SET"]},
		"target": {"type": "integer", "minimum": 0, "maximum": 7}
	},
	"required": ["action"],
	"if": {"properties": {"action": {"enum": ["set", "SET"]}}},
	"then": {"required": ["target"]},
	"additionalProperties": false
}`)
