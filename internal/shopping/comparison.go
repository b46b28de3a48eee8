package shopping

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ItemPrice is one list item's price at a supermarket.
type ItemPrice struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Supermarket is one store's quote for the whole list.
type Supermarket struct {
	Name      string      `json:"name"`
	Address   string      `json:"address"`
	TotalCost float64     `json:"totalCost"`
	Items     []ItemPrice `json:"items"`
	FlyerURL  string      `json:"flyerUrl,omitempty"`
}

// Comparison is the result of a price comparison across supermarkets.
type Comparison struct {
	Location     Location      `json:"location"`
	Supermarkets []Supermarket `json:"supermarkets"`
}

// Cheapest returns the supermarket with the lowest total, or nil when the
// comparison is empty. Ties go to the first one listed.
func (c *Comparison) Cheapest() *Supermarket {
	if c == nil || len(c.Supermarkets) == 0 {
		return nil
	}
	best := &c.Supermarkets[0]
	for i := 1; i < len(c.Supermarkets); i++ {
		if c.Supermarkets[i].TotalCost < best.TotalCost {
			best = &c.Supermarkets[i]
		}
	}
	return best
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL formats v as Brazilian reais, e.g. "R$ 1.234,50".
func FormatBRL(v float64) string {
	return brl.Sprintf("R$ %.2f", v)
}

// Markdown renders the comparison as a report.
func (c *Comparison) Markdown() string {
	var b strings.Builder
	b.WriteString("# Comparação de preços\n\n")

	best := c.Cheapest()
	if best == nil {
		b.WriteString("Nenhum resultado encontrado. Não foi possível encontrar comparações para os itens da sua lista no momento.\n")
		return b.String()
	}

	if c.Location.Validate() == nil {
		brl.Fprintf(&b, "_Local: %s_\n\n", c.Location.String())
	}
	brl.Fprintf(&b, "> **Melhor opção:** a compra completa mais barata é no **%s**, totalizando **%s**.\n\n",
		best.Name, FormatBRL(best.TotalCost))

	for _, m := range c.Supermarkets {
		marker := ""
		if m.Name == best.Name && m.TotalCost == best.TotalCost {
			marker = " 🏆"
		}
		brl.Fprintf(&b, "## %s%s\n\n", m.Name, marker)
		if m.Address != "" {
			brl.Fprintf(&b, "%s\n\n", m.Address)
		}
		b.WriteString("| Item | Preço |\n|---|---:|\n")
		for _, it := range m.Items {
			brl.Fprintf(&b, "| %s | %s |\n", escapeCell(it.Name), FormatBRL(it.Price))
		}
		brl.Fprintf(&b, "| **Total** | **%s** |\n\n", FormatBRL(m.TotalCost))
		if m.FlyerURL != "" {
			brl.Fprintf(&b, "[Ver encarte de ofertas](%s)\n\n", m.FlyerURL)
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
