package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/egregors/hkdash/internal/display"
	"github.com/egregors/hkdash/internal/toggle"
)

// Command types a client may send over /ws or POST /api/v1/commands.
const (
	CmdClick   = "click"   // target: element id
	CmdRefresh = "refresh" // resample the sensors now
	CmdReset   = "reset"   // target: device id
)

var ErrNotClickable = errors.New("element is not clickable")

const commandSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"type": {"type": "string", "enum": ["click", "refresh", "reset"]},
		"target": {"type": "string", "minLength": 1, "maxLength": 64}
	},
	"required": ["type"],
	"additionalProperties": false,
	"allOf": [
		{
			"if": {"properties": {"type": {"enum": ["click", "reset"]}}},
			"then": {"required": ["target"]}
		}
	]
}`

type Command struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
}

// CommandParser validates raw commands against the command JSON schema.
type CommandParser struct {
	schema *jsonschema.Schema
}

func NewCommandParser() (*CommandParser, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(commandSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal command schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("command.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	compiled, err := c.Compile("command.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile: %w", err)
	}

	return &CommandParser{schema: compiled}, nil
}

func (p *CommandParser) Parse(data []byte) (Command, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Command{}, fmt.Errorf("invalid json: %w", err)
	}
	if err := p.schema.Validate(inst); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}

	return cmd, nil
}

// Exec runs a parsed command against the dashboard.
func (h *Handlers) Exec(cmd Command) error {
	switch cmd.Type {
	case CmdClick:
		el, err := h.board.Get(cmd.Target)
		if err != nil {
			return err
		}
		if !el.Clickable() {
			return fmt.Errorf("%w: %q", ErrNotClickable, cmd.Target)
		}
		el.Click()

		return nil
	case CmdRefresh:
		return h.sensor.UpdateSensorData()
	case CmdReset:
		c, err := h.devices.Get(cmd.Target)
		if err != nil {
			return err
		}
		c.Reset()

		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, display.ErrNotFound) || errors.Is(err, toggle.ErrUnknownDevice)
}
