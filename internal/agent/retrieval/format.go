package retrieval

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/chative-salesdesk/server/internal/agent/model"
)

// Formatter renders search results as plain-text context for the response prompt.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter groups prices the way locale does (es-CO prints 1.850.000). An unparsable
// locale falls back to Spanish.
func NewFormatter(locale, currency string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return &Formatter{printer: message.NewPrinter(tag), currency: currency}
}

// Price formats a whole-unit amount with locale digit grouping and the currency code.
func (f *Formatter) Price(amount float64) string {
	s := "$" + f.printer.Sprintf("%d", int64(math.Round(amount)))
	if f.currency != "" {
		s += " " + f.currency
	}
	return s
}

// Context lists the result items, one block each, followed by a note when more items
// matched than were returned.
func (f *Formatter) Context(res model.SearchResult) string {
	if len(res.Items) == 0 {
		return "No se encontraron productos relacionados en el catalogo."
	}

	var b strings.Builder
	if res.Strategy == model.StrategyHighlights {
		b.WriteString("Productos destacados del catalogo:\n")
	} else {
		b.WriteString("Productos relacionados con la consulta:\n")
	}
	for i, scored := range res.Items {
		f.writeItem(&b, i+1, scored.Item)
	}
	if more := res.TotalMatched - len(res.Items); more > 0 {
		fmt.Fprintf(&b, "Hay %d resultados mas en el catalogo.\n", more)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (f *Formatter) writeItem(b *strings.Builder, n int, item *model.CatalogItem) {
	fmt.Fprintf(b, "%d. %s", n, item.Title)
	if label := strings.TrimSpace(item.Brand + " " + item.Model); label != "" {
		fmt.Fprintf(b, " (%s)", label)
	}
	fmt.Fprintf(b, " - %s\n", item.Category)
	if item.Description != "" {
		fmt.Fprintf(b, "   %s\n", item.Description)
	}
	for _, p := range item.Prices {
		fmt.Fprintf(b, "   %s: %s\n", p.Label, f.Price(p.Amount))
	}
	if item.Available {
		b.WriteString("   Disponible\n")
	} else {
		b.WriteString("   Agotado\n")
	}
	if item.URL != "" {
		fmt.Fprintf(b, "   %s\n", item.URL)
	}
}
