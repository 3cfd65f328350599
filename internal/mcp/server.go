package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storyloop/internal/engine"
)

// Narrator is the part of the engine the tool surface drives.
type Narrator interface {
	Turn(ctx context.Context, req engine.TurnRequest) (engine.TurnResult, error)
	State() engine.WorldState
}

type Server struct {
	narrator Narrator
	mcp      *sdk.Server
}

func NewServer(narrator Narrator, version string) *Server {
	s := &Server{
		narrator: narrator,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "storyloop",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}

// Connect serves a single session on transport and returns immediately.
func (s *Server) Connect(ctx context.Context, transport sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}
