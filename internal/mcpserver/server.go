// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Tortoise accounts and forecasts to LLMs via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tortoise/internal/accountservice"
	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/forecast"
	"github.com/starford/tortoise/internal/magnitude"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/parser"
	"github.com/starford/tortoise/internal/selection"
)

const formatURI = "tortoise://account-format"

// Server wraps the MCP server with Tortoise tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *accountservice.Service
	runner *forecast.Runner
}

// New creates a new MCP server with all Tortoise tools registered.
func New(svc *accountservice.Service, runner *forecast.Runner) *Server {
	s := &Server{svc: svc, runner: runner}

	s.mcp = server.NewMCPServer(
		"Tortoise",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_accounts",
		mcp.WithDescription("List stored accounts with their balance, date range, cash-flow count and tags."),
		mcp.WithString("tag", mcp.Description("Only accounts with a cash flow carrying this tag")),
	), s.listAccounts)

	s.mcp.AddTool(mcp.NewTool("get_account",
		mcp.WithDescription("Read one account as YAML."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Account name")),
	), s.getAccount)

	s.mcp.AddTool(mcp.NewTool("create_account",
		mcp.WithDescription("Create an empty account. Read "+formatURI+" for the field meanings."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Account name, also its file name")),
		mcp.WithNumber("balance", mcp.Description("Starting balance")),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("Simulation start, YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("Simulation end, YYYY-MM-DD")),
	), s.createAccount)

	s.mcp.AddTool(mcp.NewTool("add_cash_flow",
		mcp.WithDescription("Append a cash flow to a stored account."),
		mcp.WithString("account", mcp.Required(), mcp.Description("Account name")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Positive for income, negative for expenses")),
		mcp.WithString("name", mcp.Description("Cash-flow name")),
		mcp.WithString("frequency", mcp.Description("Recurrence, default Once"),
			mcp.Enum(string(models.Once), string(models.MonthStart), string(models.MonthEnd),
				string(models.SemiMonthly), string(models.Annually))),
		mcp.WithString("start_date", mcp.Description("First occurrence, YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Description("Last occurrence, YYYY-MM-DD")),
		mcp.WithNumber("tax_rate", mcp.Description("Fraction in [0, 1], default 0")),
	), s.addCashFlow)

	s.mcp.AddTool(mcp.NewTool("cash_flow_magnitudes",
		mcp.WithDescription("Cash flows of an account scored -100..100 on a log scale relative to the largest one."),
		mcp.WithString("account", mcp.Required(), mcp.Description("Account name")),
		mcp.WithBoolean("anonymize", mcp.Description("Mask digits in labels")),
	), s.cashFlowMagnitudes)

	s.mcp.AddTool(mcp.NewTool("forecast_account",
		mcp.WithDescription("Simulate one account and return its balance series."),
		mcp.WithString("account", mcp.Required(), mcp.Description("Account name")),
		mcp.WithString("portfolio", mcp.Description("Portfolio to invest through")),
	), s.forecastAccount)

	s.mcp.AddTool(mcp.NewTool("forecast_scenario",
		mcp.WithDescription("Simulate several accounts together and return one aligned balance table."),
		mcp.WithString("accounts", mcp.Required(), mcp.Description("Comma-separated account names")),
		mcp.WithBoolean("invested", mcp.Description("Invested balances (default) or uninvested")),
	), s.forecastScenario)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Account Format",
			mcp.WithResourceDescription("YAML layout of a Tortoise account."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAccountFormat,
	)

	return s
}

// Listen serves the MCP protocol on in and out until ctx is done or in is
// closed.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("account not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listAccounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.svc.Summaries(ctx, req.GetString("tag", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rows)
}

func (s *Server) getAccount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.GetAccount(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	data, err := parser.Encode(a)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createAccount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireString("start_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireString("end_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	a := models.NewAccount()
	a.Name = name
	a.Balance = req.GetFloat("balance", 0)
	a.StartDate = start
	a.EndDate = end
	if err := s.svc.CreateAccount(ctx, a); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", name)), nil
}

func (s *Server) addCashFlow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	account, err := req.RequireString("account")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cf := models.CashFlow{
		Amount:    amount,
		Frequency: models.Frequency(req.GetString("frequency", string(models.Once))),
		TaxRate:   models.Ptr(req.GetFloat("tax_rate", 0)),
		Tags:      []string{},
	}
	if !cf.Frequency.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown frequency %q", cf.Frequency)), nil
	}
	if v := req.GetString("name", ""); v != "" {
		cf.Name = models.Ptr(v)
	}
	if v := req.GetString("start_date", ""); v != "" {
		cf.StartDate = models.Ptr(v)
	}
	if v := req.GetString("end_date", ""); v != "" {
		cf.EndDate = models.Ptr(v)
	}

	a, err := s.svc.AddCashFlow(ctx, account, cf)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added cash flow %d to %s", len(a.CashFlows)-1, account)), nil
}

func (s *Server) cashFlowMagnitudes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	account, err := req.RequireString("account")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfs, err := s.svc.CashFlows(ctx, account)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(magnitude.Panel(cfs, req.GetBool("anonymize", false)))
}

func (s *Server) forecastAccount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	account, err := req.RequireString("account")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.runner.Account(ctx, forecast.AccountRequest{
		Name:      account,
		Portfolio: req.GetString("portfolio", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"run_id":   view.RunID,
		"account":  view.Name,
		"balances": view.Balances,
	})
}

func (s *Server) forecastScenario(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("accounts")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := selection.ParseQuery(raw)
	if len(names) == 0 {
		return mcp.NewToolResultError("accounts is empty"), nil
	}
	view, err := s.runner.Scenario(ctx, names)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"run_id":   view.RunID,
		"accounts": view.Accounts,
		"chart":    view.Chart(req.GetBool("invested", true)),
	})
}

func (s *Server) readAccountFormat(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     AccountFormatContract,
		},
	}, nil
}
