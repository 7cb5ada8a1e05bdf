package mcpserver

// AccountFormatContract describes the account file layout that LLM
// consumers should follow when creating accounts or adding cash flows.
const AccountFormatContract = `# Tortoise Account Format

Each account is one YAML file named ` + "`<name>.yaml`" + ` in the accounts directory.

## Structure

` + "```" + `yaml
name: Savings                 # REQUIRED - also the file name; no "/" or "\", no leading "."
balance: 1000                 # starting balance
start_date: "2024-01-01"      # ISO-8601 date, simulation start
end_date: "2030-12-31"        # ISO-8601 date, simulation end
cash_flows:                   # ordered; tools address entries by position (0-based)
  - name: Salary              # optional; null renders as an unnamed entry
    amount: 3000              # positive is income, negative is an expense
    frequency: MonthStart     # Once | MonthStart | MonthEnd | SemiMonthly | Annually
    start_date: "2024-01-01"  # optional; null means the account start
    end_date: null            # optional; null means the account end
    tax_rate: 0.2             # fraction in [0, 1]
    tags: [income]            # optional labels used for filtering
` + "```" + `

## Rules

1. Amounts, balances and tax rates must be finite numbers. Other values are
   stored but reported as issues and excluded from charts.
2. Dates are stored as given; use ` + "`YYYY-MM-DD`" + `.
3. Frequencies are case-sensitive.
4. Portfolios live under ` + "`portfolios/`" + ` and are referenced by file name
   when forecasting.
`
