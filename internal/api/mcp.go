package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/akorchak/intentd/internal/chat"
	"github.com/akorchak/intentd/internal/intent"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Matcher   *intent.Matcher
	Responder *chat.Responder
	Log       InteractionLister
}

// NewMCPServer creates an MCP server exposing the intent matcher and the
// full chat dispatcher as tools, plus the recent interaction log as a
// resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"intentd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("intentd — pattern-matched knowledge base with a generative-model fallback."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("match_intent",
			mcp.WithDescription("Match text against the intent catalog without invoking the generative model."),
			mcp.WithString("text", mcp.Description("User text to match"), mcp.Required()),
		),
		mcpMatchIntent(deps),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Run one full chat round: knowledge base first, generative fallback if nothing matches."),
			mcp.WithString("text", mcp.Description("User question"), mcp.Required()),
		),
		mcpChat(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"chatlog://recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 logged interactions (question, source, intent)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpMatchIntent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		m := deps.Matcher.Match(text)

		type matchResult struct {
			Matched      bool    `json:"matched"`
			Tag          string  `json:"tag,omitempty"`
			Response     string  `json:"response,omitempty"`
			Score        float64 `json:"score"`
			PatternIndex int     `json:"pattern_index"`
		}
		b, err := json.Marshal(matchResult{
			Matched:      m.Matched,
			Tag:          m.Tag,
			Response:     m.Response,
			Score:        m.Score,
			PatternIndex: m.PatternIndex,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		res := deps.Responder.Respond(ctx, chat.Request{Text: text})
		if res.Source == chat.SourceError {
			return mcpError(fmt.Sprintf("%s (%s)", res.Reply, res.Err)), nil
		}

		return mcpText(res.Reply), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Log.RecentInteractions(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Question  string `json:"question"`
			Source    string `json:"source"`
			Intent    string `json:"intent,omitempty"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			question := ix.Question
			if utf8.RuneCountInString(question) > 200 {
				runes := []rune(question)
				question = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Question:  question,
				Source:    ix.Source,
				Intent:    ix.Intent,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
