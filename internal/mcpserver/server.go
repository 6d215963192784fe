package mcpserver

import (
	"context"

	mng "github.com/loykin/minesim/internal/manager"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Miner is the control surface the MCP tools drive.
type Miner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() mng.Status
	Logs() []string
	Difficulty() int
	SetDifficulty(n int) error
}

// MCPServer wraps the MCP protocol server with miner tools.
type MCPServer struct {
	server *mcp.Server
	miner  Miner
}

// New creates an MCP server with all miner tools registered.
func New(version string, miner Miner) *MCPServer {
	s := &MCPServer{
		miner: miner,
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "minesim",
				Version: version,
			},
			&mcp.ServerOptions{
				Instructions: "Mining simulator. Start and stop the hashing loop, read throughput figures and the recent log lines, and adjust the difficulty setting.",
			},
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
