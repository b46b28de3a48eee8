package main

import (
	"fmt"
	"strings"

	"listacerta/internal/suggest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [query]",
	Short: "Suggest products matching a partial name",
	Long: `Runs the suggestion pipeline once for the query: Gemini proposes up to six
product names and, unless --no-images is given, a photo is generated for each.

Use --pick N to add the Nth suggestion to the list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context(), "cli")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireGateway(); err != nil {
		return err
	}

	noImages, _ := cmd.Flags().GetBool("no-images")
	pick, _ := cmd.Flags().GetInt("pick")

	ctrl := suggest.NewController(a.pipeline(!noImages), suggest.Options{
		Delay:          a.cfg.GetSuggestDelay(),
		MinQueryLength: a.cfg.GetMinQueryLength(),
		Context:        ctx,
	})
	defer ctrl.Close()

	query := strings.Join(args, " ")
	ctrl.SetQuery(query)
	ctrl.Flush()
	snap := ctrl.Snapshot()
	logger.Debug("suggest finished",
		zap.String("query", snap.Query),
		zap.Stringer("state", snap.State),
		zap.Int("suggestions", len(snap.Suggestions)))

	out := cmd.OutOrStdout()
	if snap.State == suggest.StateIdle {
		fmt.Fprintf(out, "Digite pelo menos %d letras.\n", a.cfg.GetMinQueryLength())
		return nil
	}
	if len(snap.Suggestions) == 0 {
		fmt.Fprintf(out, "Nenhuma sugestão para %q.\n", suggest.NormalizeQuery(query))
		return nil
	}
	for i, s := range snap.Suggestions {
		photo := ""
		if s.HasImage() {
			photo = " [foto]"
		}
		fmt.Fprintf(out, "%d. %s%s\n", i+1, s.Name, photo)
	}

	if pick > 0 {
		if pick > len(snap.Suggestions) {
			return fmt.Errorf("--pick %d out of range (1-%d)", pick, len(snap.Suggestions))
		}
		item, err := a.svc.AddSuggestion(ctx, snap.Suggestions[pick-1], 1)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Adicionado: %s\n", formatItem(item))
	}
	return nil
}
