package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"
	"listacerta/internal/suggest"
)

// stripFences removes a ```json fence some models wrap around JSON output.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

type suggestionPayload struct {
	Products *[]struct {
		Name *string `json:"name"`
	} `json:"products"`
}

// decodeSuggestions validates a suggestion response and returns the product
// names in order, skipping entries without a name.
func decodeSuggestions(text string) ([]string, error) {
	var p suggestionPayload
	if err := json.Unmarshal([]byte(stripFences(text)), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if p.Products == nil {
		return nil, fmt.Errorf("%w: missing products", ErrMalformedResponse)
	}

	names := make([]string, 0, len(*p.Products))
	for _, prod := range *p.Products {
		if prod.Name == nil || strings.TrimSpace(*prod.Name) == "" {
			continue
		}
		names = append(names, strings.TrimSpace(*prod.Name))
		if len(names) == suggest.MaxCandidates {
			break
		}
	}
	return names, nil
}

type comparisonPayload struct {
	Supermarkets *[]struct {
		Name      *string  `json:"name"`
		Address   *string  `json:"address"`
		TotalCost *float64 `json:"totalCost"`
		Items     *[]struct {
			Name  *string  `json:"name"`
			Price *float64 `json:"price"`
		} `json:"items"`
		FlyerURL string `json:"flyerUrl"`
	} `json:"supermarkets"`
}

// decodeComparison validates a comparison response. Supermarkets missing a
// required field are dropped; a missing supermarkets array is an error.
func decodeComparison(text string) (*shopping.Comparison, error) {
	var p comparisonPayload
	if err := json.Unmarshal([]byte(stripFences(text)), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if p.Supermarkets == nil {
		return nil, fmt.Errorf("%w: missing supermarkets", ErrMalformedResponse)
	}

	out := &shopping.Comparison{Supermarkets: []shopping.Supermarket{}}
	for i, m := range *p.Supermarkets {
		if m.Name == nil || strings.TrimSpace(*m.Name) == "" || m.Address == nil ||
			m.TotalCost == nil || !validPrice(*m.TotalCost) || m.Items == nil {
			logging.APIWarn("Dropping supermarket %d: missing required fields", i)
			continue
		}
		market := shopping.Supermarket{
			Name:      strings.TrimSpace(*m.Name),
			Address:   strings.TrimSpace(*m.Address),
			TotalCost: *m.TotalCost,
			Items:     []shopping.ItemPrice{},
			FlyerURL:  cleanURL(m.FlyerURL),
		}
		for _, it := range *m.Items {
			if it.Name == nil || it.Price == nil || !validPrice(*it.Price) {
				continue
			}
			market.Items = append(market.Items, shopping.ItemPrice{Name: *it.Name, Price: *it.Price})
		}
		out.Supermarkets = append(out.Supermarkets, market)
	}
	return out, nil
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// cleanURL keeps only absolute http(s) links.
func cleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}
