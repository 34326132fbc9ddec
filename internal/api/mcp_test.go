package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/askdb/internal/agent"
)

type stubSchema struct{}

func (stubSchema) DescribeSchema() []string {
	return []string{"Table: clientes", "Table: produtos"}
}

func callToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestMCPAskDatabase(t *testing.T) {
	proc := &mockProcessor{
		processFn: func(ctx context.Context, userID, question string) agent.Outcome {
			return agent.Outcome{
				Question: question,
				SQLQuery: "SELECT 1",
				Response: "one",
				Success:  true,
				Errors:   []agent.StageError{},
			}
		},
	}
	handler := mcpAskDatabase(MCPDeps{Agent: proc, Schema: stubSchema{}})

	res, err := handler(context.Background(), callToolRequest(map[string]any{
		"question": "what is one?",
		"user_id":  "user1",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("result is error: %s", resultText(t, res))
	}
	if proc.lastUserID != "user1" || proc.lastQuestion != "what is one?" {
		t.Errorf("processor received user=%q question=%q", proc.lastUserID, proc.lastQuestion)
	}

	var out agent.Outcome
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("result is not an Outcome: %v", err)
	}
	if out.Response != "one" || !out.Success {
		t.Errorf("outcome = %+v", out)
	}
}

func TestMCPAskDatabaseRequiresQuestion(t *testing.T) {
	handler := mcpAskDatabase(MCPDeps{Agent: &mockProcessor{}, Schema: stubSchema{}})

	res, err := handler(context.Background(), callToolRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Error("result is not an error for missing question")
	}
}

func TestMCPListSchema(t *testing.T) {
	handler := mcpListSchema(MCPDeps{Agent: &mockProcessor{}, Schema: stubSchema{}})

	res, err := handler(context.Background(), callToolRequest(nil))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Table: clientes") || !strings.Contains(text, "Table: produtos") {
		t.Errorf("schema text = %q", text)
	}
}
