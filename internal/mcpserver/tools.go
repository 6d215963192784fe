package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultStopWait = 5 * time.Second

// --- Input types ---

type emptyInput struct{}

type stopInput struct {
	Wait string `json:"wait,omitempty" jsonschema:"max time to wait for the loop to stop, e.g. 2s (default 5s)"`
}

type difficultyInput struct {
	Value int `json:"value,omitempty" jsonschema:"new difficulty 1-5; omit to read the current value"`
}

func (s *MCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minesim_start",
		Description: "Start the hashing loop (no-op when already running)",
	}, s.handleStart)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minesim_stop",
		Description: "Stop the hashing loop and wait for it to exit (no-op when stopped)",
	}, s.handleStop)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minesim_status",
		Description: "Run state, total hashes, hash rate and elapsed time",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minesim_logs",
		Description: "Most recent log lines, newest last",
	}, s.handleLogs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minesim_difficulty",
		Description: "Read or set the difficulty setting (1-5, display only)",
	}, s.handleDifficulty)
}

// --- Handlers ---

func (s *MCPServer) handleStart(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.miner.Start(ctx); err != nil {
		return errResult(fmt.Sprintf("start failed: %v", err)), nil, nil
	}
	st := s.miner.Status()
	return textResult(fmt.Sprintf("Mining started.\n\n- **Run:** `%s`", st.RunID)), nil, nil
}

func (s *MCPServer) handleStop(ctx context.Context, _ *mcp.CallToolRequest, in stopInput) (*mcp.CallToolResult, any, error) {
	wait := defaultStopWait
	if in.Wait != "" {
		d, err := time.ParseDuration(in.Wait)
		if err != nil || d <= 0 {
			return errResult(fmt.Sprintf("invalid wait %q", in.Wait)), nil, nil
		}
		wait = d
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := s.miner.Stop(ctx); err != nil {
		return errResult(fmt.Sprintf("stop failed: %v", err)), nil, nil
	}
	st := s.miner.Status()
	return textResult(fmt.Sprintf("Mining stopped.\n\n- **Hashes:** %d\n- **Elapsed:** %.2fs",
		st.Snapshot.TotalCount, st.Snapshot.ElapsedSeconds)), nil, nil
}

func (s *MCPServer) handleStatus(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	st := s.miner.Status()

	var b strings.Builder
	fmt.Fprintf(&b, "# Miner Status\n\n")
	fmt.Fprintf(&b, "- **State:** %s\n", st.State)
	if st.RunID != "" {
		fmt.Fprintf(&b, "- **Run:** `%s`\n", st.RunID)
	}
	fmt.Fprintf(&b, "- **Algorithm:** %s\n", st.Algorithm)
	fmt.Fprintf(&b, "- **Difficulty:** %d\n", st.Difficulty)
	fmt.Fprintf(&b, "- **Total hashes:** %d\n", st.Snapshot.TotalCount)
	fmt.Fprintf(&b, "- **Hash rate:** %.0f H/s\n", st.Snapshot.Rate)
	fmt.Fprintf(&b, "- **Elapsed:** %.1fs\n", st.Snapshot.ElapsedSeconds)
	fmt.Fprintf(&b, "- **Runs:** %d\n", st.Runs)
	if st.LastError != "" {
		fmt.Fprintf(&b, "- **Last error:** %s\n", st.LastError)
	}
	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleLogs(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	lines := s.miner.Logs()
	if len(lines) == 0 {
		return textResult("No log lines yet."), nil, nil
	}
	return textResult("```\n" + strings.Join(lines, "\n") + "\n```"), nil, nil
}

func (s *MCPServer) handleDifficulty(_ context.Context, _ *mcp.CallToolRequest, in difficultyInput) (*mcp.CallToolResult, any, error) {
	if in.Value != 0 {
		if err := s.miner.SetDifficulty(in.Value); err != nil {
			return errResult(err.Error()), nil, nil
		}
	}
	return textResult(fmt.Sprintf("Difficulty: %d", s.miner.Difficulty())), nil, nil
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
