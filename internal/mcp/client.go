package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storyloop/internal/debug"
)

// Client drives a remote storyloop tool server.
type Client struct {
	client  *sdk.Client
	session *sdk.ClientSession
	debug   *debug.Logger
}

func NewClient(version string, debugLogger *debug.Logger) *Client {
	return &Client{
		client: sdk.NewClient(&sdk.Implementation{
			Name:    "storyloop-client",
			Version: version,
		}, nil),
		debug: debugLogger,
	}
}

// ConnectCommand starts name with args and speaks MCP over its stdio.
func (c *Client) ConnectCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return c.Connect(ctx, &sdk.CommandTransport{Command: cmd})
}

func (c *Client) Connect(ctx context.Context, transport sdk.Transport) error {
	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	c.session = session
	c.debug.Printf("Connected to storyloop MCP server")
	return nil
}

func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

func (c *Client) GenerateNarrative(ctx context.Context, input GenerateNarrativeInput) (GenerateNarrativeOutput, error) {
	var out GenerateNarrativeOutput
	if err := c.call(ctx, ToolGenerateNarrative, input, &out); err != nil {
		return GenerateNarrativeOutput{}, err
	}
	c.debug.Printf("Remote turn %s: escalated=%t outcome=%s", out.EventID, out.Escalated, out.Outcome)
	return out, nil
}

func (c *Client) WorldState(ctx context.Context, location string) (WorldStateOutput, error) {
	var out WorldStateOutput
	if err := c.call(ctx, ToolGetWorldState, GetWorldStateInput{Location: location}, &out); err != nil {
		return WorldStateOutput{}, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, tool string, args any, out any) error {
	if c.session == nil {
		return errors.New("mcp client is not connected")
	}

	result, err := c.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", tool, err)
	}

	text := firstText(result)
	if result.IsError {
		return fmt.Errorf("%s: %s", tool, text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to parse %s result: %w", tool, err)
	}
	return nil
}

func firstText(result *sdk.CallToolResult) string {
	for _, content := range result.Content {
		if tc, ok := content.(*sdk.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
