package gateway

import (
	"fmt"
	"strconv"
	"strings"

	"listacerta/internal/shopping"
)

func suggestionPrompt(query string) string {
	return fmt.Sprintf(`Aja como um especialista em produtos de supermercado no Brasil.
A busca do usuário é por: "%s".

Sua tarefa é listar até 6 sugestões de produtos **altamente relevantes** e específicos que correspondam à busca.
As sugestões devem pertencer à mesma categoria do item pesquisado.

**Exemplos de como agir:**
- Se a busca for "bolacha", sugira "Biscoito Recheado Oreo 90g", "Bolacha Água e Sal Tostines 200g", "Biscoito Maizena Piraquê 170g".
- Se a busca for "refrigerante", sugira "Refrigerante Coca-Cola 2L", "Refrigerante Guaraná Antarctica 350ml".

**IMPORTANTE - O que NÃO fazer:**
- Não sugira produtos que apenas soam parecidos, mas são de categorias diferentes. Por exemplo, para a busca "bolacha", **NÃO** sugira "Queijo Bola" ou "Pão de Queijo Bolinhas". A similaridade sonora é irrelevante, o foco é na categoria do produto.

Liste apenas os nomes dos produtos, incluindo marca e tamanho/peso.`, query)
}

func imagePrompt(name string) string {
	return fmt.Sprintf(`Fotografia de produto de alta qualidade de "%s" em um fundo branco limpo, estilo e-commerce.`, name)
}

func comparisonPrompt(items []shopping.Item, loc shopping.Location) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("- %s (Quantidade: %s)", it.Name, strconv.FormatFloat(it.Quantity, 'f', -1, 64))
	}

	return fmt.Sprintf(`Aja como um assistente de compras especialista em encontrar as melhores ofertas e promoções em supermercados no Brasil.
%s

Minha lista de compras é a seguinte:
%s

Com base na localização fornecida, identifique 3 supermercados REAIS e conhecidos nessa área.
Para cada um desses supermercados:
1. Gere uma comparação de preços para a lista de compras. Forneça o nome e o endereço completo.
2. Calcule um preço realista em BRL (R$) para cada item e o custo total da lista.
3. PROCURE ativamente e inclua o link (URL) para a revista de promoções ou o encarte de ofertas semanal mais recente. O link deve ser para a visualização online do encarte. Se não encontrar um encarte válido, deixe o campo 'flyerUrl' vazio.

Formate a resposta estritamente como JSON usando o schema fornecido. Não inclua nenhuma formatação adicional ou texto explicativo fora do JSON.`,
		loc.PromptFragment(), strings.Join(lines, "\n"))
}
