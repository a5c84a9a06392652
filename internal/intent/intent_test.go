// ABOUTME: Tests for chat intent parsing
// ABOUTME: Covers the LLM JSON path, malformed responses, and the keyword heuristic
package intent

import (
	"context"
	"fmt"
	"testing"

	"github.com/hypelens/hypelens/internal/models"
)

type cannedGenerator struct {
	response string
	err      error
}

func (g *cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.response, g.err
}

func TestParseLLMSearchIntent(t *testing.T) {
	gen := &cannedGenerator{response: `{"intent": "search", "query": "travel photographers", "filters": {"followers": {"min": 10000}, "account_type": "human"}}`}
	p := NewParser(gen)

	got, err := p.Parse(context.Background(), "find travel photographers with over 10k followers", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Kind != KindSearch || got.Query != "travel photographers" {
		t.Errorf("intent = %+v", got)
	}
	if got.Filters.Followers == nil || got.Filters.Followers.Min != 10000 {
		t.Errorf("followers filter = %+v", got.Filters.Followers)
	}
	if got.Filters.AccountType != models.AccountHuman {
		t.Errorf("account type = %q", got.Filters.AccountType)
	}
}

func TestParseLLMToleratesProseAroundJSON(t *testing.T) {
	gen := &cannedGenerator{response: "Sure, here is the intent:\n```json\n{\"intent\": \"clarify\", \"message\": \"Which city?\"}\n```"}
	p := NewParser(gen)

	got, err := p.Parse(context.Background(), "profiles there", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Kind != KindClarify || got.Message != "Which city?" {
		t.Errorf("intent = %+v", got)
	}
}

func TestParseLLMFailureFallsBackToHeuristic(t *testing.T) {
	tests := []struct {
		name string
		gen  *cannedGenerator
	}{
		{"generator error", &cannedGenerator{err: fmt.Errorf("unreachable")}},
		{"no json", &cannedGenerator{response: "I cannot help with that"}},
		{"bad intent kind", &cannedGenerator{response: `{"intent": "dance"}`}},
		{"search without query", &cannedGenerator{response: `{"intent": "search"}`}},
		{"invalid filters", &cannedGenerator{response: `{"intent": "search", "query": "x", "filters": {"account_type": "robot"}}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.gen)
			got, err := p.Parse(context.Background(), "coffee shops in brooklyn", nil)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got.Kind != KindSearch || got.Query != "coffee shops in brooklyn" {
				t.Errorf("fallback intent = %+v", got)
			}
		})
	}
}

func TestHeuristicFollowerBounds(t *testing.T) {
	p := NewParser(nil)

	got, err := p.Parse(context.Background(), "travel photographers with over 10K followers", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Filters.Followers == nil || got.Filters.Followers.Min != 10000 {
		t.Fatalf("filters = %+v, want min 10000", got.Filters)
	}
	if got.Query == "" || got.Query != "travel photographers with" {
		// Follower fragment stripped; the remainder is the query.
		t.Errorf("query = %q", got.Query)
	}

	got, err = p.Parse(context.Background(), "bakers under 1.5M followers", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Filters.Followers == nil || got.Filters.Followers.Max != 1500000 {
		t.Errorf("filters = %+v, want max 1500000", got.Filters)
	}
}

func TestHeuristicAccountType(t *testing.T) {
	p := NewParser(nil)

	got, err := p.Parse(context.Background(), "sustainable fashion brands", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Filters.AccountType != models.AccountBrand {
		t.Errorf("account type = %q, want brand", got.Filters.AccountType)
	}

	got, err = p.Parse(context.Background(), "people who do woodworking", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Filters.AccountType != models.AccountHuman {
		t.Errorf("account type = %q, want human", got.Filters.AccountType)
	}
}

func TestHeuristicRefineWithSession(t *testing.T) {
	p := NewParser(nil)
	session := models.NewSession()
	session.BaseQuery = "travel photographers"
	session.AddTurn("user", "travel photographers")

	got, err := p.Parse(context.Background(), "only brands", session)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Kind != KindRefine {
		t.Errorf("kind = %q, want refine", got.Kind)
	}
	if got.Filters.AccountType != models.AccountBrand {
		t.Errorf("account type = %q, want brand", got.Filters.AccountType)
	}
	if got.Query != "only brands" {
		t.Errorf("query = %q", got.Query)
	}
}

func TestHeuristicHelpAndEmpty(t *testing.T) {
	p := NewParser(nil)

	got, err := p.Parse(context.Background(), "help", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Kind != KindHelp || got.Message == "" {
		t.Errorf("intent = %+v", got)
	}

	got, err = p.Parse(context.Background(), "   ", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Kind != KindClarify {
		t.Errorf("kind = %q, want clarify", got.Kind)
	}
}

func TestHeuristicContradictoryBoundsKeepMin(t *testing.T) {
	p := NewParser(nil)
	got, err := p.Parse(context.Background(), "chefs with over 100K followers and under 5K followers", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	f := got.Filters.Followers
	if f == nil || f.Min != 100000 || f.Max != 0 {
		t.Errorf("filters = %+v, want min 100000 with open max", f)
	}
	if err := got.Filters.Validate(); err != nil {
		t.Errorf("heuristic produced invalid filters: %v", err)
	}
}
