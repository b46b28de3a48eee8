package shopping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleComparison() *Comparison {
	return &Comparison{
		Location: Location{City: "Campinas", State: "SP"},
		Supermarkets: []Supermarket{
			{Name: "Pão de Açúcar", Address: "Av. Norte-Sul, 1000", TotalCost: 48.7,
				Items: []ItemPrice{{Name: "Arroz 5kg", Price: 29.9}, {Name: "Feijão 1kg", Price: 18.8}}},
			{Name: "Assaí", Address: "Rod. Dom Pedro I, km 140", TotalCost: 41.5,
				Items: []ItemPrice{{Name: "Arroz 5kg", Price: 25.5}, {Name: "Feijão 1kg", Price: 16}},
				FlyerURL: "https://example.com/encarte"},
			{Name: "Carrefour", Address: "Av. Guilherme Campos, 500", TotalCost: 41.5},
		},
	}
}

func TestComparison_Cheapest(t *testing.T) {
	best := sampleComparison().Cheapest()
	require.NotNil(t, best)
	assert.Equal(t, "Assaí", best.Name, "ties go to the first listed")

	var empty *Comparison
	assert.Nil(t, empty.Cheapest())
	assert.Nil(t, (&Comparison{}).Cheapest())
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 12,90", FormatBRL(12.9))
	assert.Equal(t, "R$ 0,50", FormatBRL(0.5))
}

func TestComparison_Markdown(t *testing.T) {
	md := sampleComparison().Markdown()
	assert.Contains(t, md, "# Comparação de preços")
	assert.Contains(t, md, "_Local: Campinas, SP_")
	assert.Contains(t, md, "mais barata é no **Assaí**, totalizando **R$ 41,50**")
	assert.Contains(t, md, "## Assaí 🏆")
	assert.NotContains(t, md, "## Carrefour 🏆")
	assert.Contains(t, md, "| Arroz 5kg | R$ 29,90 |")
	assert.Contains(t, md, "[Ver encarte de ofertas](https://example.com/encarte)")

	empty := (&Comparison{}).Markdown()
	assert.Contains(t, empty, "Nenhum resultado encontrado")
}
