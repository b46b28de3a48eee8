package main

import (
	"fmt"
	"io"

	"listacerta/internal/shopping"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare prices of the unchecked items at nearby supermarkets",
	Example: `  lista compare --city "Belo Horizonte" --state MG
  lista compare --lat -19.92 --lon -43.94 --markdown`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
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

	loc, err := locationFromFlags(cmd, a.defaultLocation())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Comparando preços perto de %s...\n", loc)
	cmp, err := a.svc.ComparePrices(ctx, loc)
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetBool("markdown")
	return printComparison(cmd.OutOrStdout(), cmp, raw)
}

// locationFromFlags prefers --lat/--lon, then --city/--state, then def.
func locationFromFlags(cmd *cobra.Command, def shopping.Location) (shopping.Location, error) {
	flags := cmd.Flags()
	if flags.Changed("lat") || flags.Changed("lon") {
		if !flags.Changed("lat") || !flags.Changed("lon") {
			return shopping.Location{}, fmt.Errorf("--lat and --lon must be given together")
		}
		lat, _ := flags.GetFloat64("lat")
		lon, _ := flags.GetFloat64("lon")
		return shopping.Coordinates(lat, lon), nil
	}

	city, _ := flags.GetString("city")
	state, _ := flags.GetString("state")
	if city == "" && state == "" {
		return def, nil
	}
	return shopping.Location{City: city, State: state}, nil
}

func printComparison(w io.Writer, cmp *shopping.Comparison, raw bool) error {
	md := cmp.Markdown()
	if raw {
		_, err := fmt.Fprint(w, md)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		_, err = fmt.Fprint(w, md)
		return err
	}
	out, err := renderer.Render(md)
	if err != nil {
		out = md
	}
	_, err = fmt.Fprint(w, out)
	return err
}
