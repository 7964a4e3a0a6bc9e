package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/scrubber/models"
	"github.com/use-agent/scrubber/scrubber"
)

// scraper is the orchestrator surface the tools need.
type scraper interface {
	Scrape(ctx context.Context, path string) (*models.RestaurantRecord, scrubber.Status, error)
	Cleanup() error
}

func newServer(sc scraper) *server.MCPServer {
	s := server.NewMCPServer(
		"scrubber",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_restaurant",
		mcp.WithDescription("Extract review count, two most recent reviews, price tier and cuisines of one restaurant listing. Results are cached on disk between calls."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Site-relative path of the listing, starting with '/', e.g. /Restaurant_Review-g189180-d12503536-Reviews-Dick_s_Bar-Porto.html"),
		),
	)
	s.AddTool(scrapeTool, handleScrape(sc))

	clearTool := mcp.NewTool("clear_cache",
		mcp.WithDescription("Delete every cached document and record. The next scrape of any listing goes to the network."),
	)
	s.AddTool(clearTool, handleClearCache(sc))

	return s
}

func handleScrape(sc scraper) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError("path is required"), nil
		}

		rec, status, err := sc.Scrape(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape failed [%s]: %v", models.CodeOf(err), err)), nil
		}

		out, err := yaml.Marshal(rec)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode record: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("# cache: %s\n%s", status, out)), nil
	}
}

func handleClearCache(sc scraper) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sc.Cleanup(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to clear cache: %v", err)), nil
		}
		return mcp.NewToolResultText("cache cleared"), nil
	}
}
