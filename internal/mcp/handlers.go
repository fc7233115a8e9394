package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/wish"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store store.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(s store.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: s, cfg: cfg}
}

// ListRequest represents the arguments for wish_list.
type ListRequest struct {
	Category string `json:"category,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// CreateRequest represents the arguments for wish_create.
type CreateRequest struct {
	Wish     string `json:"wish"`
	Country  string `json:"country"`
	Telegram string `json:"telegram"`
	Category string `json:"category,omitempty"`
}

// DeleteRequest represents the arguments for wish_delete.
type DeleteRequest struct {
	ID  int64   `json:"id,omitempty"`
	IDs []int64 `json:"ids,omitempty"`
}

// ClaimRequest represents the arguments for wish_claim.
type ClaimRequest struct {
	ID int64 `json:"id"`
}

// FeedRequest represents the arguments for activity_feed.
type FeedRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ClaimResult is the output of wish_claim.
type ClaimResult struct {
	Event    *wish.Event `json:"event"`
	Telegram string      `json:"telegram"`
}

// HandleList handles the wish_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = h.cfg.PageSize
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		Category: input.Category,
		Page:     input.Page,
		PageSize: pageSize,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCreate handles the wish_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Create(ctx, h.store, ops.CreateInput{
		Draft: wish.Draft{
			Wish:     input.Wish,
			Country:  input.Country,
			Telegram: input.Telegram,
			Category: wish.Category(input.Category),
		},
		RequireCategory: !h.cfg.OptionalCategory,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the wish_delete tool call. With ids it runs a bulk
// delete and reports per-id failures instead of failing the call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	switch {
	case input.ID != 0 && len(input.IDs) > 0:
		return errorResult(errors.NewInvalidRequest("use either id or ids, not both")), nil
	case len(input.IDs) > 0:
		result, err := ops.BulkDelete(ctx, func(ctx context.Context, id int64) error {
			_, err := ops.Delete(ctx, h.store, id)
			return err
		}, ops.BulkDeleteInput{IDs: input.IDs})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	default:
		result, err := ops.Delete(ctx, h.store, input.ID)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

// HandleClaim handles the wish_claim tool call.
func (h *Handlers) HandleClaim(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClaimRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	e, err := ops.Claim(ctx, h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	w, err := h.store.GetWish(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(ClaimResult{Event: e, Telegram: w.Telegram})
}

// HandleFeed handles the activity_feed tool call.
func (h *Handlers) HandleFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FeedRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.cfg.FeedLimit
	}

	result, err := ops.Feed(ctx, h.store, ops.FeedInput{Limit: limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleVisitorStats handles the visitor_stats tool call.
func (h *Handlers) HandleVisitorStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.VisitorStats(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	se := errors.As(err)

	errorObj := map[string]any{
		"code":    se.Code,
		"message": se.Message,
		"status":  se.Status,
	}
	if se.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
		errorObj["status"] = 500
	} else if se.Details != nil {
		errorObj["details"] = se.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
