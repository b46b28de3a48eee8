package gateway

import "google.golang.org/genai"

func suggestionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"products": {
				Type:        genai.TypeArray,
				Description: "Uma lista de sugestões de produtos específicos.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type:        genai.TypeString,
							Description: "O nome completo do produto, incluindo marca e tamanho/peso. Ex: 'Leite Integral Italac 1L'.",
						},
					},
					Required: []string{"name"},
				},
			},
		},
		Required: []string{"products"},
	}
}

func comparisonSchema() *genai.Schema {
	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":  {Type: genai.TypeString, Description: "O nome do item da lista de compras."},
			"price": {Type: genai.TypeNumber, Description: "O preço do item neste supermercado."},
		},
		Required: []string{"name", "price"},
	}
	market := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":      {Type: genai.TypeString, Description: "O nome do supermercado."},
			"address":   {Type: genai.TypeString, Description: "O endereço do supermercado."},
			"totalCost": {Type: genai.TypeNumber, Description: "O custo total de todos os itens da lista neste supermercado."},
			"items": {
				Type:        genai.TypeArray,
				Description: "Uma lista dos itens e seus preços individuais neste supermercado.",
				Items:       item,
			},
			"flyerUrl": {
				Type:        genai.TypeString,
				Description: "O link (URL) para a revista de promoções ou encarte de ofertas atual do supermercado. Se não encontrar, deixe em branco.",
			},
		},
		Required: []string{"name", "address", "totalCost", "items"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"supermarkets": {
				Type:        genai.TypeArray,
				Description: "Uma lista de supermercados com seus respectivos preços e endereços.",
				Items:       market,
			},
		},
		Required: []string{"supermarkets"},
	}
}
