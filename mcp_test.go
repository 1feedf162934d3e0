package mysqlmcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestRequestLength(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		// {"sql":"SHOW TABLES"} marshals to 21 bytes.
		{"arguments present", map[string]interface{}{"sql": "SHOW TABLES"}, 21},
		{"arguments nil", nil, 0},
		{"arguments empty", map[string]interface{}{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := mcp.CallToolRequest{
				Params: mcp.CallToolParams{Name: "run_query", Arguments: tc.args},
			}
			if got := requestLength(req); got != tc.want {
				t.Fatalf("expected %d bytes, got %d", tc.want, got)
			}
		})
	}
}

func TestResultLength(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		result *mcp.CallToolResult
		want   int
	}{
		{"text result", mcp.NewToolResultText(`{"columns":["id"],"row_count":3}`), 32},
		{"error result", mcp.NewToolResultError("query timed out"), 15},
		{"nil result", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resultLength(tc.result); got != tc.want {
				t.Fatalf("expected %d bytes, got %d", tc.want, got)
			}
		})
	}
}

func TestCapResult_UnderLimit(t *testing.T) {
	t.Parallel()
	payload := `{"rows":[{"id":1}]}`
	got, capped := capResult(payload, 100)
	if capped || got != payload {
		t.Fatalf("expected passthrough, got capped=%v %q", capped, got)
	}
}

func TestCapResult_OverLimit(t *testing.T) {
	t.Parallel()
	payload := strings.Repeat("x", 50)
	got, capped := capResult(payload, 10)
	if !capped {
		t.Fatal("expected capped=true")
	}
	if !strings.HasPrefix(got, strings.Repeat("x", 10)+"...[truncated]") {
		t.Fatalf("expected 10 kept characters plus marker, got %q", got)
	}
	if !strings.Contains(got, "Add limits in your query!") {
		t.Fatalf("expected advice in capped payload, got %q", got)
	}
}

func TestCapResult_CountsRunesNotBytes(t *testing.T) {
	t.Parallel()
	// 20 two-byte runes: 40 bytes but only 20 characters.
	payload := strings.Repeat("é", 20)
	if _, capped := capResult(payload, 20); capped {
		t.Fatal("expected rune-counted payload to fit")
	}
	got, capped := capResult(payload, 19)
	if !capped {
		t.Fatal("expected capped=true")
	}
	if strings.Contains(got, "�") {
		t.Fatalf("rune split in capped payload: %q", got)
	}
}

func TestLoggedToolHandler_Passthrough(t *testing.T) {
	t.Parallel()
	g, err := New(context.Background(), testConfig(), testLogger())
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}
	defer g.Close()

	want := mcp.NewToolResultText("ok")
	wrapped := g.loggedToolHandler("run_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return want, nil
	})

	got, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatal("expected handler result to pass through unchanged")
	}

	wantErr := errors.New("handler exploded")
	wrapped = g.loggedToolHandler("run_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, wantErr
	})

	got, err = wrapped(context.Background(), mcp.CallToolRequest{})
	if got != nil || !errors.Is(err, wantErr) {
		t.Fatalf("expected error passthrough, got %v %v", got, err)
	}
}
