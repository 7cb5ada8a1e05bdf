// Package parser decodes and encodes account files.
package parser

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/tortoise/internal/models"
)

// Result holds a decoded account plus the summary fields the catalog keeps.
type Result struct {
	Account   models.Account
	Tags      []string
	CashFlows int
	Issues    int
}

// Parse decodes a YAML account file. A missing cash_flows key decodes to an
// empty list.
func Parse(data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("parser: empty account file")
	}
	var a models.Account
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parser: decode: %w", err)
	}
	if a.CashFlows == nil {
		a.CashFlows = []models.CashFlow{}
	}
	return &Result{
		Account:   a,
		Tags:      a.Tags(),
		CashFlows: len(a.CashFlows),
		Issues:    len(models.Issues(a)),
	}, nil
}

// Encode renders a as YAML with two-space indentation.
func Encode(a models.Account) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(a); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	return buf.Bytes(), nil
}
