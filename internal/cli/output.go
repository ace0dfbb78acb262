package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"

	tabPadding = 2
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// resolveOutput returns the requested format, defaulting to a table on a
// terminal and JSON otherwise.
func resolveOutput(requested string, w io.Writer) (string, error) {
	switch strings.ToLower(requested) {
	case outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	case "":
		if f, ok := w.(*os.File); ok && isTerminal(f) {
			return outputTable, nil
		}
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table or json)", requested)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatAmount(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.0f", v)
}

func formatPercent(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.1f%%", v)
}
