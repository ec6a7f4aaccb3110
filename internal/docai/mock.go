package docai

import (
	"context"
	"io"
	"strings"
)

// MockParser returns canned statement markdown keyed off the filename, for
// demos and offline runs. Figures match the sample documents shipped with
// the project.
type MockParser struct{}

func (MockParser) Parse(_ context.Context, filename string, _ io.Reader) (string, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "income"), strings.Contains(name, "profit"), strings.Contains(name, "p&l"):
		return mockIncomeStatement, nil
	case strings.Contains(name, "cash"):
		return mockCashFlow, nil
	default:
		return mockBalanceSheet, nil
	}
}

const mockBalanceSheet = `# Balance Sheet

As of September 30, 2024 (Q3 2024)

## Assets

| Line Item | Amount |
|---|---|
| Cash | $25,000.00 |
| Accounts Receivable | $50,000.00 |
| Inventory | $20,000.00 |
| Total Current Assets | $95,000.00 |
| Fixed Assets | $108,200.00 |
| **Total Assets** | **$203,200.00** |

## Liabilities and Equity

| Line Item | Amount |
|---|---|
| Accounts Payable | $5,000.00 |
| Total Liabilities | $131,250.00 |
| Owner's Equity | $71,950.00 |
`

const mockIncomeStatement = `# Income Statement

For the quarter ended September 30, 2024 (Q3 2024)

| Line Item | Amount |
|---|---|
| Revenue | $523,456.78 |
| Cost of Goods Sold | $210,000.00 |
| Gross Profit | $313,456.78 |
| Operating Expenses | $125,000.00 |
| **Net Income** | **$188,456.78** |
`

const mockCashFlow = `# Cash Flow Statement

For the quarter ended September 30, 2024 (Q3 2024)

| Line Item | Amount |
|---|---|
| Operating Cash Flow | $150,000.00 |
| Investing Cash Flow | ($50,000.00) |
| Financing Cash Flow | ($25,000.00) |
| **Net Cash Flow** | **$75,000.00** |
`
