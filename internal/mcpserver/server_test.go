package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tortoise/internal/accountservice"
	"github.com/starford/tortoise/internal/forecast"
	"github.com/starford/tortoise/internal/testutil"
)

func testServer(t *testing.T) (*Server, *accountservice.Service) {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := accountservice.New(store, db, &testutil.FakeSimulator{}, logger)
	runner := forecast.NewRunner(svc, forecast.WithMinVisible(0), forecast.WithLogger(logger))
	return New(svc, runner), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_accounts":
		result, err = srv.listAccounts(ctx, req)
	case "get_account":
		result, err = srv.getAccount(ctx, req)
	case "create_account":
		result, err = srv.createAccount(ctx, req)
	case "add_cash_flow":
		result, err = srv.addCashFlow(ctx, req)
	case "cash_flow_magnitudes":
		result, err = srv.cashFlowMagnitudes(ctx, req)
	case "forecast_account":
		result, err = srv.forecastAccount(ctx, req)
	case "forecast_scenario":
		result, err = srv.forecastScenario(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAccountAndAddCashFlow(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_account", map[string]interface{}{
		"name":       "Savings",
		"balance":    1000.0,
		"start_date": "2024-01-01",
		"end_date":   "2030-12-31",
	})
	if text := resultText(r); text != "created: Savings" {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "create_account", map[string]interface{}{
		"name": "Savings", "start_date": "2024-01-01", "end_date": "2030-12-31",
	})
	if !r.IsError {
		t.Error("duplicate create should fail")
	}

	r = callTool(t, srv, "add_cash_flow", map[string]interface{}{
		"account":   "Savings",
		"amount":    -1200.0,
		"name":      "Rent",
		"frequency": "MonthEnd",
	})
	if text := resultText(r); text != "added cash flow 0 to Savings" {
		t.Errorf("add result = %q", text)
	}

	a, err := svc.GetAccount(context.Background(), "Savings")
	if err != nil {
		t.Fatal(err)
	}
	if a.Balance != 1000 || len(a.CashFlows) != 1 || a.CashFlows[0].Frequency != "MonthEnd" {
		t.Errorf("stored account = %+v", a)
	}

	r = callTool(t, srv, "get_account", map[string]interface{}{"name": "Savings"})
	if text := resultText(r); !strings.Contains(text, "name: Rent") || !strings.Contains(text, "balance: 1000") {
		t.Errorf("get_account = %q", text)
	}
}

func TestAddCashFlowValidation(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.SaveAccount(context.Background(), testutil.SampleAccount("Savings"))

	r := callTool(t, srv, "add_cash_flow", map[string]interface{}{
		"account": "Savings", "amount": 1.0, "frequency": "Weekly",
	})
	if !r.IsError {
		t.Error("unknown frequency should fail")
	}

	r = callTool(t, srv, "add_cash_flow", map[string]interface{}{"account": "Ghost", "amount": 1.0})
	if !r.IsError || resultText(r) != "account not found" {
		t.Errorf("missing account = %q", resultText(r))
	}
}

func TestCreateAccountInvalidName(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_account", map[string]interface{}{
		"name": "../escape", "start_date": "2024-01-01", "end_date": "2024-12-31",
	})
	if !r.IsError {
		t.Error("expected error for invalid name")
	}
}

func TestListAccounts(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.SaveAccount(context.Background(), testutil.SampleAccount("A"))
	_ = svc.SaveAccount(context.Background(), testutil.SampleAccount("B"))

	r := callTool(t, srv, "list_accounts", map[string]interface{}{})
	var rows []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "A" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestCashFlowMagnitudes(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.SaveAccount(context.Background(), testutil.SampleAccount("Savings"))

	r := callTool(t, srv, "cash_flow_magnitudes", map[string]interface{}{"account": "Savings"})
	var bars []struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &bars); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bars) != 2 || bars[0].Name != "Salary" || bars[0].Score != 100 {
		t.Errorf("bars = %+v", bars)
	}
}

func TestForecastTools(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.SaveAccount(context.Background(), testutil.SampleAccount("A"))
	_ = svc.SaveAccount(context.Background(), testutil.SampleAccount("B"))

	r := callTool(t, srv, "forecast_account", map[string]interface{}{"account": "A"})
	if r.IsError || !strings.Contains(resultText(r), `"run_id"`) {
		t.Errorf("forecast_account = %q", resultText(r))
	}

	r = callTool(t, srv, "forecast_scenario", map[string]interface{}{"accounts": "B, A"})
	var out struct {
		Accounts []string `json:"accounts"`
		Chart    struct {
			Rows []map[string]any `json:"rows"`
		} `json:"chart"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(out.Accounts, ",") != "B,A" || len(out.Chart.Rows) != 3 {
		t.Errorf("scenario = %+v", out)
	}

	r = callTool(t, srv, "forecast_scenario", map[string]interface{}{"accounts": " , "})
	if !r.IsError {
		t.Error("empty account list should fail")
	}
}

func TestAccountFormatResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readAccountFormat(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != "tortoise://account-format" || !strings.Contains(tc.Text, "cash_flows:") {
		t.Errorf("resource = %+v", contents)
	}
}
