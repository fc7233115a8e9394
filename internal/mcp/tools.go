package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/wish"
)

func categoryNames() []string {
	names := make([]string, 0, len(wish.Categories))
	for _, c := range wish.Categories {
		names = append(names, string(c))
	}
	return names
}

var listToolDef = mcp.NewTool("wish_list",
	mcp.WithDescription("List wishes newest first, one page at a time. Contact handles are included."),
	mcp.WithString("category",
		mcp.Description("Category filter, or \"all\""),
		mcp.Enum(append([]string{wish.CategoryAll}, categoryNames()...)...),
	),
	mcp.WithNumber("page", mcp.Description("1-based page number, clamped to the available pages")),
	mcp.WithNumber("page_size", mcp.Description("Wishes per page (default 9)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var createToolDef = mcp.NewTool("wish_create",
	mcp.WithDescription("Store a new wish and record its wish_created event."),
	mcp.WithString("wish", mcp.Required(), mcp.Description("What the person wishes for")),
	mcp.WithString("country", mcp.Required(), mcp.Description("Country of the person making the wish")),
	mcp.WithString("telegram", mcp.Required(), mcp.Description("Telegram handle, must start with @")),
	mcp.WithString("category", mcp.Description("Wish category"), mcp.Enum(categoryNames()...)),
)

var deleteToolDef = mcp.NewTool("wish_delete",
	mcp.WithDescription("Delete one wish by id, or several with ids. Deleting a wish also removes its events."),
	mcp.WithNumber("id", mcp.Description("Wish id")),
	mcp.WithArray("ids",
		mcp.Description("Wish ids for a bulk delete (at most 100)"),
		mcp.Items(map[string]any{"type": "integer"}),
	),
	mcp.WithDestructiveHintAnnotation(true),
)

var claimToolDef = mcp.NewTool("wish_claim",
	mcp.WithDescription("Record that someone became the Secret Santa of a wish and return its contact handle."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Wish id")),
)

var feedToolDef = mcp.NewTool("activity_feed",
	mcp.WithDescription("Recent wish activity with the number of wishes made in the last 24 hours and 7 days."),
	mcp.WithNumber("limit",
		mcp.Description("Number of activities (default 10)"),
		mcp.Min(1),
		mcp.Max(ops.MaxEventLimit),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var visitorStatsToolDef = mcp.NewTool("visitor_stats",
	mcp.WithDescription("Number of distinct visitors and stored wishes."),
	mcp.WithReadOnlyHintAnnotation(true),
)
