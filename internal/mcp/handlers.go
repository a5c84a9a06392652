// ABOUTME: MCP tool handler implementations for the profile search server
// ABOUTME: Handlers return tool errors in-band; transport errors stay nil
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypelens/hypelens/internal/followers"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/pipeline"
	"github.com/hypelens/hypelens/internal/search"
	"github.com/hypelens/hypelens/internal/vectorindex"
)

// Handlers contains the handler functions for all MCP tools.
type Handlers struct {
	engine *search.Engine
	pipe   *pipeline.Pipeline
	store  *metadata.Store
	index  vectorindex.Index
}

// SearchProfiles handles the search_profiles tool.
func (h *Handlers) SearchProfiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := models.SearchQuery{
		Text:     request.GetString("query", ""),
		ImageURL: request.GetString("image_url", ""),
		Limit:    request.GetInt("limit", 10),
	}
	if query.Text == "" && query.ImageURL == "" {
		return mcp.NewToolResultError("provide query text, an image_url, or both"), nil
	}

	minFollowers := request.GetInt("min_followers", 0)
	maxFollowers := request.GetInt("max_followers", 0)
	if minFollowers > 0 || maxFollowers > 0 {
		query.Filters.Followers = &models.FollowerRange{
			Min: int64(minFollowers),
			Max: int64(maxFollowers),
		}
	}
	query.Filters.AccountType = models.AccountType(request.GetString("account_type", ""))

	resp, err := h.engine.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"mode":         resp.Mode,
		"image_weight": resp.Weights.Image,
		"text_weight":  resp.Weights.Text,
		"results":      resp.Results,
	}
	return marshalResult(response)
}

// IngestProfile handles the ingest_profile tool.
func (h *Handlers) IngestProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileID := request.GetInt("profile_id", 0)
	if profileID <= 0 {
		return mcp.NewToolResultError("profile_id is required and must be positive"), nil
	}

	profile := models.Profile{
		ProfileID:     int64(profileID),
		Username:      request.GetString("username", ""),
		Bio:           request.GetString("bio", ""),
		ProfilePicURL: request.GetString("profile_pic_url", ""),
		PostImageURLs: stringArrayArg(request, "post_image_urls"),
		Captions:      stringArrayArg(request, "captions"),
	}
	if raw := request.GetString("followers", ""); raw != "" {
		profile.FollowerCountRaw = raw
		if count, ok := followers.Parse(raw); ok {
			profile.FollowerCount = count
			profile.FollowerCategory = followers.Categorize(count)
		}
	}

	result := h.pipe.IngestOne(ctx, profile, pipeline.Options{
		SkipExisting: request.GetBool("skip_existing", false),
	})
	if result.Status == pipeline.StatusFailed {
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", result.Err)), nil
	}

	response := map[string]interface{}{
		"profile_id": result.ProfileID,
		"username":   result.Username,
		"status":     string(result.Status),
	}
	return marshalResult(response)
}

// GetProfile handles the get_profile tool.
func (h *Handlers) GetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		profile *models.Profile
		err     error
	)
	if id := request.GetInt("profile_id", 0); id > 0 {
		profile, err = h.store.Get(ctx, int64(id))
	} else if username := request.GetString("username", ""); username != "" {
		profile, err = h.store.GetByUsername(ctx, username)
	} else {
		return mcp.NewToolResultError("provide profile_id or username"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	return marshalResult(profile)
}

// CollectionStatus handles the collection_status tool.
func (h *Handlers) CollectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	indexed, err := h.index.Count(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("index count failed: %v", err)), nil
	}
	stats, err := h.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("metadata stats failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"indexed_vectors":        indexed,
		"profiles":               stats.Total,
		"by_account_type":        stats.ByAccountType,
		"by_follower_category":   stats.ByCategory,
		"missing_follower_count": stats.MissingCount,
	}
	return marshalResult(response)
}

func marshalResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringArrayArg extracts an array-of-strings argument.
func stringArrayArg(request mcp.CallToolRequest, key string) []string {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
