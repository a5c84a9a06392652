// ABOUTME: Conversational intent parsing for the chat surface
// ABOUTME: LLM produces structured JSON when available; a keyword heuristic covers the rest
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/hypelens/hypelens/internal/followers"
	"github.com/hypelens/hypelens/internal/llm"
	"github.com/hypelens/hypelens/internal/models"
)

// Kind is what the user is asking for.
type Kind string

const (
	KindSearch  Kind = "search"
	KindRefine  Kind = "refine"
	KindClarify Kind = "clarify"
	KindHelp    Kind = "help"
)

// Intent is the parsed meaning of one chat message. Query and Filters
// are set for search and refine; Message carries the reply text for
// clarify and help.
type Intent struct {
	Kind    Kind           `json:"intent"`
	Query   string         `json:"query,omitempty"`
	Filters models.Filters `json:"filters,omitempty"`
	Message string         `json:"message,omitempty"`
}

const parsePromptTemplate = `You convert a chat message about finding social media profiles into a structured intent.

Conversation so far:
%s

Message: %s

Respond with only a JSON object:
{"intent": "search" | "refine" | "clarify" | "help",
 "query": "<search text, for search and refine>",
 "filters": {"followers": {"min": <n>, "max": <n>}, "account_type": "human" | "brand", "username": "<name>"},
 "message": "<reply text, for clarify and help>"}

Use "refine" when the message narrows or adjusts the previous search instead of starting a new one. Omit filters you are not sure about. Use "clarify" with a short question when the message is too vague to search.`

// Parser turns chat messages into intents.
type Parser struct {
	generator llm.Generator
}

// NewParser builds a parser. generator may be nil; everything then
// goes through the keyword heuristic.
func NewParser(generator llm.Generator) *Parser {
	return &Parser{generator: generator}
}

// Parse interprets a message in the context of a session. It always
// produces a usable intent; LLM failures fall back to the heuristic.
func (p *Parser) Parse(ctx context.Context, message string, session *models.Session) (Intent, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Intent{Kind: KindClarify, Message: "What kind of profiles are you looking for?"}, nil
	}

	if p.generator != nil {
		parsed, err := p.parseLLM(ctx, message, session)
		if err == nil {
			return parsed, nil
		}
		log.Printf("intent: llm parse failed, using heuristic: %v", err)
	}
	return p.parseHeuristic(message, session), nil
}

func (p *Parser) parseLLM(ctx context.Context, message string, session *models.Session) (Intent, error) {
	history := "(none)"
	if session != nil {
		if recent := session.RecentHistory(4); len(recent) > 0 {
			var lines []string
			for _, turn := range recent {
				lines = append(lines, turn.Role+": "+turn.Content)
			}
			history = strings.Join(lines, "\n")
		}
	}
	response, err := p.generator.Generate(ctx, fmt.Sprintf(parsePromptTemplate, history, message))
	if err != nil {
		return Intent{}, err
	}
	parsed, err := decodeIntent(response)
	if err != nil {
		return Intent{}, err
	}
	if err := parsed.Filters.Validate(); err != nil {
		return Intent{}, fmt.Errorf("llm produced invalid filters: %w", err)
	}
	return parsed, nil
}

// decodeIntent extracts the first JSON object from an LLM response
// and decodes it, tolerating surrounding prose and code fences.
func decodeIntent(response string) (Intent, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return Intent{}, fmt.Errorf("no JSON object in response")
	}
	var parsed Intent
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return Intent{}, fmt.Errorf("failed to decode intent: %w", err)
	}
	switch parsed.Kind {
	case KindSearch, KindRefine, KindClarify, KindHelp:
	default:
		return Intent{}, fmt.Errorf("unrecognized intent %q", parsed.Kind)
	}
	if (parsed.Kind == KindSearch || parsed.Kind == KindRefine) && parsed.Query == "" {
		return Intent{}, fmt.Errorf("%s intent without a query", parsed.Kind)
	}
	return parsed, nil
}

var (
	helpPattern      = regexp.MustCompile(`(?i)^(help|what can you do|how do(es)? (this|it) work)\b`)
	refinePattern    = regexp.MustCompile(`(?i)^(only|just|narrow|filter|refine|instead|but )`)
	minFollowerExpr  = regexp.MustCompile(`(?i)(?:over|more than|at least|above|min(?:imum)?)\s+([\d.]+\s*[KMB]?)\s*\+?\s*followers`)
	maxFollowerExpr  = regexp.MustCompile(`(?i)(?:under|less than|fewer than|below|max(?:imum)?)\s+([\d.]+\s*[KMB]?)\s*followers`)
	brandExpr        = regexp.MustCompile(`(?i)\b(brands?|companies|company|business(es)?)\b`)
	humanExpr        = regexp.MustCompile(`(?i)\b(people|humans?|individuals?|persons?)\b`)
	followerFragment = regexp.MustCompile(`(?i)(?:over|more than|at least|above|under|less than|fewer than|below|min(?:imum)?|max(?:imum)?)\s+[\d.]+\s*[KMB]?\s*\+?\s*followers`)
)

// parseHeuristic covers the no-LLM path: extract follower bounds and
// account type from keywords and treat the rest as the search text.
func (p *Parser) parseHeuristic(message string, session *models.Session) Intent {
	if helpPattern.MatchString(message) {
		return Intent{
			Kind:    KindHelp,
			Message: "Describe the profiles you want, optionally with an image. You can constrain results, for example: travel photographers with over 10K followers.",
		}
	}

	var filters models.Filters
	if m := minFollowerExpr.FindStringSubmatch(message); m != nil {
		if n, ok := followers.Parse(m[1]); ok {
			if filters.Followers == nil {
				filters.Followers = &models.FollowerRange{}
			}
			filters.Followers.Min = n
		}
	}
	if m := maxFollowerExpr.FindStringSubmatch(message); m != nil {
		if n, ok := followers.Parse(m[1]); ok {
			if filters.Followers == nil {
				filters.Followers = &models.FollowerRange{}
			}
			filters.Followers.Max = n
		}
	}
	if filters.Followers != nil && filters.Followers.Max != 0 && filters.Followers.Max <= filters.Followers.Min {
		// Contradictory bounds from loose phrasing; keep the lower
		// bound, which is usually the intended one.
		filters.Followers.Max = 0
	}
	if brandExpr.MatchString(message) && !humanExpr.MatchString(message) {
		filters.AccountType = models.AccountBrand
	} else if humanExpr.MatchString(message) && !brandExpr.MatchString(message) {
		filters.AccountType = models.AccountHuman
	}

	query := strings.TrimSpace(followerFragment.ReplaceAllString(message, ""))
	query = strings.Trim(query, " ,.")
	kind := KindSearch
	if session != nil && len(session.History) > 0 && refinePattern.MatchString(message) {
		kind = KindRefine
		if query == "" {
			query = session.BaseQuery
		}
	}
	if query == "" {
		return Intent{Kind: KindClarify, Message: "What should the profiles be about?"}
	}
	return Intent{Kind: kind, Query: query, Filters: filters}
}
