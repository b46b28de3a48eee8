package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Finish the purchase: archive the list in the history and clear it",
	Args:  cobra.NoArgs,
	RunE:  runComplete,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past purchases, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var reuseCmd = &cobra.Command{
	Use:   "reuse [purchase-id] [item-id]",
	Short: "Put an item from a past purchase back on the list",
	Args:  cobra.ExactArgs(2),
	RunE:  runReuse,
}

func runComplete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context(), "cli")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.svc.CompletePurchase(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Compra %s concluída com %d itens.\n", rec.ID, len(rec.Items))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context(), "cli")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.svc.History(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		fmt.Fprintln(out, "Nenhuma compra registrada.")
		return nil
	}

	showItems, _ := cmd.Flags().GetBool("items")
	for _, rec := range recs {
		fmt.Fprintf(out, "%s  %s  %d itens\n", rec.Date.Local().Format("02/01/2006 15:04"), rec.ID, len(rec.Items))
		if !showItems {
			continue
		}
		for _, it := range rec.Items {
			fmt.Fprintf(out, "    #%d %s x%s\n", it.ID, it.Name, formatQuantity(it.Quantity))
		}
	}
	return nil
}

func runReuse(cmd *cobra.Command, args []string) error {
	itemID, err := parseID(args[1])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context(), "cli")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	item, err := a.svc.ReuseItem(ctx, args[0], itemID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Adicionado: %s\n", formatItem(item))
	return nil
}
