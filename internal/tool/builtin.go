package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
	"github.com/capitalize-ai/assistant-gateway/internal/search"
)

// TestFunctionName is the diagnostic tool visible to the end user.
const TestFunctionName = "test_function"

// SearchToolName is the retrieval tool visible only to the assistant.
const SearchToolName = "search"

type testFunctionInput struct {
	Strings []string `json:"strings" jsonschema:"description=Arbitrary strings to echo back"`
}

// NewTestFunction builds the diagnostic tool. It echoes its input so a user
// can verify the tool round-trip end to end.
func NewTestFunction() Tool {
	definition := model.ToolDefinition{
		Name:        TestFunctionName,
		Description: "Diagnostic function that echoes its input back to the user.",
		InputSchema: inputSchema(&testFunctionInput{}),
	}

	return New(definition, model.AudienceUser, func(_ context.Context, _ ExecContext, input map[string]any) (any, error) {
		data, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("failed to encode input: %w", err)
		}
		return fmt.Sprintf("Test function called with: %s", data), nil
	})
}

type searchInput struct {
	Query string `json:"query" jsonschema:"description=The search query to run against the selected document collections"`
}

// NewSearchTool builds the retrieval tool over the external search service.
// The collection scope comes from the per-call ExecContext.
func NewSearchTool(client search.Client) Tool {
	definition := model.ToolDefinition{
		Name:        SearchToolName,
		Description: "Search the user's selected document collections and return ranked text snippets.",
		InputSchema: inputSchema(&searchInput{}),
	}

	return New(definition, model.AudienceAssistant, func(ctx context.Context, ec ExecContext, input map[string]any) (any, error) {
		query, _ := input["query"].(string)
		if query == "" {
			return nil, fmt.Errorf("query is required")
		}

		snippets, err := client.Search(ctx, ec.Collections, query)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		return formatSnippets(snippets), nil
	})
}

func formatSnippets(snippets []search.Snippet) string {
	if len(snippets) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, s := range snippets {
		fmt.Fprintf(&b, "%d. %s", i+1, s.Text)
		if s.Source != "" {
			fmt.Fprintf(&b, " (source: %s)", s.Source)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
