package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	errs "github.com/sweetpotato0/termchat/errors"
)

// ToolError is returned when the MCP server reports an error response.
type ToolError struct {
	Name    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp tool %s: %s", e.Name, e.Message)
}

// Parameter describes one property of a tool's input schema.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
	Default     any
}

// ListTools retrieves a single page of tools from the MCP server.
func (c *Client) ListTools(ctx context.Context, cursor string) (*sdkmcp.ListToolsResult, error) {
	if c.session == nil {
		return nil, ErrClientClosed
	}
	params := &sdkmcp.ListToolsParams{}
	if cursor != "" {
		params.Cursor = cursor
	}
	return c.session.ListTools(ctx, params)
}

// ListAllTools returns the full set of tools exposed by the MCP server.
func (c *Client) ListAllTools(ctx context.Context) ([]*sdkmcp.Tool, error) {
	var (
		cursor string
		tools  []*sdkmcp.Tool
	)
	for {
		res, err := c.ListTools(ctx, cursor)
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			return tools, nil
		}
		cursor = res.NextCursor
	}
}

// CallTool invokes a remote MCP tool and returns the textual response.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", ErrClientClosed
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	message := normalizeContent(result.Content)
	if result.IsError {
		if message == "" {
			message = "tool returned error without message"
		}
		return "", &ToolError{Name: name, Message: message}
	}

	return message, nil
}

func normalizeContent(content []sdkmcp.Content) string {
	if len(content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdkmcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := c.MarshalJSON(); err == nil {
				parts = append(parts, string(data))
			}
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// inputParameter picks the property a free-form chat message is bound to:
// "input" when present, else the first required string, else the first string.
func inputParameter(params []Parameter) (string, bool) {
	var firstString string
	for _, p := range params {
		if p.Name == "input" {
			return p.Name, true
		}
	}
	for _, p := range params {
		if p.Type != "string" {
			continue
		}
		if p.Required {
			return p.Name, true
		}
		if firstString == "" {
			firstString = p.Name
		}
	}
	return firstString, firstString != ""
}

// argumentsFor turns a chat message into tool arguments. A message holding a
// JSON object is passed through unchanged.
func argumentsFor(message string, params []Parameter) (map[string]any, error) {
	trimmed := strings.TrimSpace(message)
	if strings.HasPrefix(trimmed, "{") {
		var args map[string]any
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
			return args, nil
		}
	}
	if len(params) == 0 {
		return map[string]any{}, nil
	}
	name, ok := inputParameter(params)
	if !ok {
		return nil, fmt.Errorf("mcp: tool takes no string parameter, send a JSON object: %w", errs.ErrInvalidInput)
	}
	return map[string]any{name: trimmed}, nil
}

func parametersFromSchema(schema any) []Parameter {
	schemaMap := toMap(schema)
	if schemaMap == nil {
		return nil
	}

	typeVal, _ := schemaMap["type"].(string)
	if strings.ToLower(typeVal) != "object" {
		return nil
	}

	propsRaw, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(propsRaw) == 0 {
		return nil
	}

	requiredSet := make(map[string]struct{})
	if list, ok := toStringSlice(schemaMap["required"]); ok {
		for _, name := range list {
			requiredSet[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(propsRaw))
	for name := range propsRaw {
		names = append(names, name)
	}
	sort.Strings(names)

	parameters := make([]Parameter, 0, len(names))
	for _, name := range names {
		propMap, ok := propsRaw[name].(map[string]any)
		if !ok {
			continue
		}

		param := Parameter{
			Name:        name,
			Description: stringValue(propMap["description"]),
			Type:        stringValue(propMap["type"]),
			Default:     propMap["default"],
		}
		if _, ok := requiredSet[name]; ok {
			param.Required = true
		}
		if enums, ok := toStringSlice(propMap["enum"]); ok {
			param.Enum = enums
		}
		if param.Type == "" {
			param.Type = inferType(propMap)
		}

		parameters = append(parameters, param)
	}

	return parameters
}

func inferType(prop map[string]any) string {
	if _, ok := prop["items"]; ok {
		return "array"
	}
	if _, ok := prop["properties"]; ok {
		return "object"
	}
	return "string"
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toStringSlice(v any) ([]string, bool) {
	switch raw := v.(type) {
	case []string:
		return raw, true
	case []any:
		values := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
		return values, true
	default:
		return nil, false
	}
}

// toMap normalizes a schema into a generic map. Tools listed by a server carry
// decoded JSON maps; other shapes go through a JSON round trip.
func toMap(v any) map[string]any {
	switch value := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return value
	case json.RawMessage:
		return unmarshalMap(value)
	case []byte:
		return unmarshalMap(value)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		return unmarshalMap(data)
	}
}

func unmarshalMap(data []byte) map[string]any {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
