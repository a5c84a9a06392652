// ABOUTME: MCP tool definitions and registration for the profile search server
// ABOUTME: Exposes search, ingest, lookup, and collection status over the MCP protocol
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/pipeline"
	"github.com/hypelens/hypelens/internal/search"
	"github.com/hypelens/hypelens/internal/vectorindex"
)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(server *mcpserver.MCPServer, engine *search.Engine, pipe *pipeline.Pipeline, store *metadata.Store, index vectorindex.Index) *Handlers {
	handlers := &Handlers{
		engine: engine,
		pipe:   pipe,
		store:  store,
		index:  index,
	}

	// 1. search_profiles - hybrid image/text profile search
	server.AddTool(mcp.Tool{
		Name:        "search_profiles",
		Description: "Search indexed social media profiles by text, an image URL, or both. Weights between visual and textual similarity are inferred from the query.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language description of the profiles to find",
				},
				"image_url": map[string]interface{}{
					"type":        "string",
					"description": "Optional reference image URL for visual similarity",
				},
				"min_followers": map[string]interface{}{
					"type":        "number",
					"description": "Only return profiles with at least this many followers",
				},
				"max_followers": map[string]interface{}{
					"type":        "number",
					"description": "Only return profiles with fewer followers than this",
				},
				"account_type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to 'human' or 'brand' accounts",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results (default: 10)",
					"default":     10,
				},
			},
		},
	}, handlers.SearchProfiles)

	// 2. ingest_profile - embed and index one profile
	server.AddTool(mcp.Tool{
		Name:        "ingest_profile",
		Description: "Embed a social media profile (picture, posts, captions, bio) and store it in the search index. Re-ingesting an existing profile replaces it unless skip_existing is set.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"profile_id": map[string]interface{}{
					"type":        "number",
					"description": "Numeric profile identifier",
				},
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Profile username",
				},
				"bio": map[string]interface{}{
					"type":        "string",
					"description": "Profile bio text",
				},
				"profile_pic_url": map[string]interface{}{
					"type":        "string",
					"description": "Profile picture URL",
				},
				"post_image_urls": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Recent post image URLs",
				},
				"captions": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Recent post captions",
				},
				"followers": map[string]interface{}{
					"type":        "string",
					"description": "Follower count as displayed, e.g. '19.3K followers'",
				},
				"skip_existing": map[string]interface{}{
					"type":        "boolean",
					"description": "Leave the profile untouched if it is already indexed",
				},
			},
			Required: []string{"profile_id"},
		},
	}, handlers.IngestProfile)

	// 3. get_profile - fetch the stored record for one profile
	server.AddTool(mcp.Tool{
		Name:        "get_profile",
		Description: "Fetch the stored metadata for one indexed profile by id or username.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"profile_id": map[string]interface{}{
					"type":        "number",
					"description": "Numeric profile identifier",
				},
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Profile username, used when profile_id is absent",
				},
			},
		},
	}, handlers.GetProfile)

	// 4. collection_status - index and metadata statistics
	server.AddTool(mcp.Tool{
		Name:        "collection_status",
		Description: "Report how many profiles are indexed, broken down by account type and follower tier.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.CollectionStatus)

	return handlers
}
