// ABOUTME: HTTP handlers for search, chat, ingest, and status endpoints
// ABOUTME: Chat sessions are client-held; the server is stateless between requests
package server

import (
	"github.com/gofiber/fiber/v3"

	"github.com/hypelens/hypelens/internal/intent"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/models"
	"github.com/hypelens/hypelens/internal/pipeline"
	"github.com/hypelens/hypelens/internal/search"
	"github.com/hypelens/hypelens/internal/vectorindex"
)

// SearchHandler serves one-shot searches.
type SearchHandler struct {
	engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

func (h *SearchHandler) Register(router fiber.Router) {
	router.Post("/search", h.Search)
}

// Search runs a hybrid or text-only search.
func (h *SearchHandler) Search(c fiber.Ctx) error {
	var query models.SearchQuery
	if err := c.Bind().JSON(&query); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	resp, err := h.engine.Search(c.Context(), query)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(resp)
}

// ChatHandler serves conversational search. The session travels with
// the request and response so the server holds no state.
type ChatHandler struct {
	engine *search.Engine
	parser *intent.Parser
}

func NewChatHandler(engine *search.Engine, parser *intent.Parser) *ChatHandler {
	return &ChatHandler{engine: engine, parser: parser}
}

func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/chat", h.Chat)
}

type chatRequest struct {
	Message  string          `json:"message"`
	ImageURL string          `json:"image_url,omitempty"`
	Session  *models.Session `json:"session,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

type chatResponse struct {
	Intent  string                `json:"intent"`
	Reply   string                `json:"reply,omitempty"`
	Results []models.SearchResult `json:"results,omitempty"`
	Weights *models.WeightPair    `json:"weights,omitempty"`
	Session *models.Session       `json:"session"`
}

// Chat parses the message into an intent and, for search and refine,
// runs the query with the session's accumulated filters.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	var req chatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	session := req.Session
	if session == nil {
		session = models.NewSession()
	}
	session.AddTurn("user", req.Message)

	parsed, err := h.parser.Parse(c.Context(), req.Message, session)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	resp := chatResponse{Intent: string(parsed.Kind), Session: session}
	switch parsed.Kind {
	case intent.KindSearch, intent.KindRefine:
		if parsed.Kind == intent.KindSearch {
			// A fresh search resets accumulated filters; a refine
			// keeps them and overlays the new ones.
			session.BaseQuery = parsed.Query
			session.Filters = models.Filters{}
		}
		session.MergeFilters(parsed.Filters)

		result, err := h.engine.Search(c.Context(), models.SearchQuery{
			Text:     parsed.Query,
			ImageURL: req.ImageURL,
			Filters:  session.Filters,
			Limit:    req.Limit,
		})
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		resp.Results = result.Results
		resp.Weights = &result.Weights
		resp.Reply = session.FilterSummary()
	default:
		resp.Reply = parsed.Message
	}
	session.AddTurn("assistant", resp.Reply)
	return c.JSON(resp)
}

// IngestHandler serves batch ingestion.
type IngestHandler struct {
	pipe *pipeline.Pipeline
}

func NewIngestHandler(pipe *pipeline.Pipeline) *IngestHandler {
	return &IngestHandler{pipe: pipe}
}

func (h *IngestHandler) Register(router fiber.Router) {
	router.Post("/ingest", h.Ingest)
}

type ingestRequest struct {
	Profiles     []models.Profile `json:"profiles"`
	SkipExisting bool             `json:"skip_existing,omitempty"`
	Workers      int              `json:"workers,omitempty"`
}

// Ingest embeds and indexes a batch of profiles.
func (h *IngestHandler) Ingest(c fiber.Ctx) error {
	var req ingestRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.Profiles) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no profiles provided"})
	}

	summary, err := h.pipe.Ingest(c.Context(), req.Profiles, pipeline.Options{
		SkipExisting: req.SkipExisting,
		Workers:      req.Workers,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	// Per-profile errors are strings in the response; the Result type
	// keeps them as errors internally.
	failures := make([]fiber.Map, 0)
	for _, r := range summary.Results {
		if r.Err != nil {
			failures = append(failures, fiber.Map{
				"profile_id": r.ProfileID,
				"error":      r.Err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{
		"done":     summary.Done,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
		"failures": failures,
	})
}

// StatusHandler serves collection statistics.
type StatusHandler struct {
	store *metadata.Store
	index vectorindex.Index
}

func NewStatusHandler(store *metadata.Store, index vectorindex.Index) *StatusHandler {
	return &StatusHandler{store: store, index: index}
}

func (h *StatusHandler) Register(router fiber.Router) {
	router.Get("/status", h.Status)
}

// Status reports index size and metadata breakdowns.
func (h *StatusHandler) Status(c fiber.Ctx) error {
	indexed, err := h.index.Count(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	stats, err := h.store.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"indexed_vectors": indexed,
		"profiles":        stats,
	})
}
