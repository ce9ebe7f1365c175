package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Format is an output format for reports.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
)

// ParseFormat parses a format name; "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *Report, format Format) error {
	var out string
	switch format {
	case FormatCSV:
		s, err := RenderCSV(r)
		if err != nil {
			return err
		}
		out = s
	case FormatMarkdown:
		out = RenderMarkdown(r)
	case FormatTable:
		out = RenderTable(r)
	case FormatJSON:
		return RenderJSON(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

func usd(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullUSD(d decimal.NullDecimal, missing string) string {
	if !d.Valid {
		return missing
	}
	return usd(d.Decimal)
}
