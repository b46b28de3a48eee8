package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"listacerta/internal/shopping"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args against a fresh flag state and
// returns everything written to stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("LISTA_DB", "")
	t.Setenv("LISTA_MODEL", "")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestItemCommands(t *testing.T) {
	ws := t.TempDir()

	out, err := execute(t, "add", "Leite", "Integral", "--qty", "2", "-w", ws)
	require.NoError(t, err)
	assert.Equal(t, "Adicionado: #1 [ ] Leite Integral x2\n", out)

	_, err = execute(t, "add", "Banana", "-q", "1.5", "-w", ws)
	require.NoError(t, err)

	out, err = execute(t, "list", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "#1 [ ] Leite Integral x2")
	assert.Contains(t, out, "#2 [ ] Banana x1,5")
	assert.Contains(t, out, "2 itens, 0 no carrinho")

	out, err = execute(t, "toggle", "1", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "#1 [x] Leite Integral")

	out, err = execute(t, "qty", "2", "0,5", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "Banana x0,5")

	out, err = execute(t, "rm", "#2", "-w", ws)
	require.NoError(t, err)
	assert.Equal(t, "Removido: #2\n", out)

	out, err = execute(t, "list", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "1 itens, 1 no carrinho")

	_, err = os.Stat(filepath.Join(ws, ".lista", "lista.db"))
	assert.NoError(t, err, "the store lives under the workspace")
}

func TestItemCommandErrors(t *testing.T) {
	ws := t.TempDir()

	_, err := execute(t, "toggle", "42", "-w", ws)
	assert.ErrorIs(t, err, shopping.ErrNotFound)

	_, err = execute(t, "add", "   ", "-w", ws)
	assert.ErrorIs(t, err, shopping.ErrEmptyName)

	_, err = execute(t, "qty", "1", "muito", "-w", ws)
	assert.ErrorContains(t, err, "invalid quantity")

	_, err = execute(t, "remove", "abc", "-w", ws)
	assert.ErrorContains(t, err, "invalid item id")
}

func TestCompleteHistoryReuse(t *testing.T) {
	ws := t.TempDir()

	out, err := execute(t, "complete", "-w", ws)
	assert.ErrorIs(t, err, shopping.ErrEmptyList)
	assert.Empty(t, out)

	_, err = execute(t, "add", "Arroz", "-w", ws)
	require.NoError(t, err)
	_, err = execute(t, "add", "Feijão", "--qty", "2", "-w", ws)
	require.NoError(t, err)

	out, err = execute(t, "complete", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "concluída com 2 itens")
	recordID := strings.Fields(out)[1]

	out, err = execute(t, "list", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "A lista está vazia.")

	out, err = execute(t, "history", "--items", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, recordID)
	assert.Contains(t, out, "#2 Feijão x2")

	out, err = execute(t, "reuse", recordID, "2", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "Feijão x2")

	_, err = execute(t, "reuse", recordID, "99", "-w", ws)
	assert.ErrorIs(t, err, shopping.ErrNotFound)
}

func TestGeminiCommandsNeedKey(t *testing.T) {
	ws := t.TempDir()

	_, err := execute(t, "suggest", "leite", "-w", ws)
	assert.ErrorIs(t, err, errNoAPIKey)

	_, err = execute(t, "compare", "--city", "Recife", "--state", "PE", "-w", ws)
	assert.ErrorIs(t, err, errNoAPIKey)
}

// fakeGemini answers the two Gemini REST calls the app makes.
func fakeGemini(t *testing.T, suggestText, compareText string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			text := suggestText
			if strings.Contains(string(body), "supermarkets") {
				text = compareText
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []any{map[string]any{
					"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
				}},
				"usageMetadata": map[string]any{"promptTokenCount": 80, "candidatesTokenCount": 20},
			})
		case strings.HasSuffix(r.URL.Path, ":predict"):
			_ = json.NewEncoder(w).Encode(map[string]any{"predictions": []any{map[string]any{
				"bytesBase64Encoded": base64.StdEncoding.EncodeToString([]byte("jpeg")),
				"mimeType":           "image/jpeg",
			}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, ws, baseURL string) {
	t.Helper()
	cfg := "llm:\n  base_url: " + baseURL + "/\n  timeout: 5s\nsuggest:\n  delay: 10ms\n  images: true\nlocation:\n  city: Recife\n  state: PE\n"
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".lista"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".lista", "config.yaml"), []byte(cfg), 0644))
}

func TestSuggestAndUsage(t *testing.T) {
	ws := t.TempDir()
	srv := fakeGemini(t, `{"products":[{"name":"Leite Integral"},{"name":"Leite Desnatado"}]}`, "")
	writeConfig(t, ws, srv.URL)

	out, err := execute(t, "suggest", "le", "--api-key", "test-key", "-w", ws)
	require.NoError(t, err)
	assert.Equal(t, "Digite pelo menos 3 letras.\n", out)

	out, err = execute(t, "suggest", "leite", "--pick", "2", "--api-key", "test-key", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Leite Integral [foto]")
	assert.Contains(t, out, "2. Leite Desnatado [foto]")
	assert.Contains(t, out, "Adicionado: #1 [ ] Leite Desnatado x1")

	out, err = execute(t, "suggest", "leite", "--no-images", "--pick", "7", "--api-key", "test-key", "-w", ws)
	assert.ErrorContains(t, err, "out of range")
	assert.Contains(t, out, "1. Leite Integral\n")

	out, err = execute(t, "usage", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "Por operação")
	assert.Contains(t, out, "suggest")
	assert.Contains(t, out, "image")
	assert.Contains(t, out, "cli")
}

func TestCompareMarkdown(t *testing.T) {
	ws := t.TempDir()
	srv := fakeGemini(t, "", `{"supermarkets":[
		{"name":"Atacadão","address":"Av. Recife","totalCost":18.4,"items":[{"name":"Arroz","price":18.4}]},
		{"name":"Carrefour","address":"Av. Boa Viagem","totalCost":21.9,"items":[{"name":"Arroz","price":21.9}]}
	]}`)
	writeConfig(t, ws, srv.URL)

	_, err := execute(t, "add", "Arroz", "-w", ws)
	require.NoError(t, err)

	out, err := execute(t, "compare", "--markdown", "--api-key", "test-key", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "Comparando preços perto de Recife, PE")
	assert.Contains(t, out, "## Atacadão 🏆")
	assert.Contains(t, out, "R$ 21,90")

	_, err = execute(t, "compare", "--lat", "-8.05", "--api-key", "test-key", "-w", ws)
	assert.ErrorContains(t, err, "--lat and --lon")
}

func TestLocationFromFlags(t *testing.T) {
	def := shopping.Location{City: "Recife", State: "PE"}
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default", nil, "Recife, PE"},
		{"city", []string{"--city", "Natal", "--state", "RN"}, "Natal, RN"},
		{"coordinates", []string{"--lat", "-5.79", "--lon", "-35.2", "--city", "Natal"}, "-5.79000, -35.20000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(compareCmd)
			require.NoError(t, compareCmd.ParseFlags(tt.args))
			loc, err := locationFromFlags(compareCmd, def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc.String())
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("#12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"", "0", "-3", "x"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
