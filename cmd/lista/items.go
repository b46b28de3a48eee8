package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"listacerta/internal/shopping"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add an item to the shopping list",
	Example: `  lista add "Leite Integral" --qty 2
  lista add Banana --qty 1.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show the shopping list",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var removeCmd = &cobra.Command{
	Use:     "remove [id]",
	Aliases: []string{"rm"},
	Short:   "Remove an item from the list",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Check or uncheck an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

var qtyCmd = &cobra.Command{
	Use:   "qty [id] [quantity]",
	Short: "Change the quantity of an item",
	Args:  cobra.ExactArgs(2),
	RunE:  runQty,
}

func qtyFlag(cmd *cobra.Command) {
	cmd.Flags().Float64P("qty", "q", 1, "Quantity (fractions allowed, e.g. 0.5)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context(), "cli")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	qty, _ := cmd.Flags().GetFloat64("qty")
	image, _ := cmd.Flags().GetString("image")
	item, err := a.svc.AddItem(ctx, strings.Join(args, " "), qty, image)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Adicionado: %s\n", formatItem(item))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context(), "cli")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.svc.Items(ctx)
	if err != nil {
		return err
	}
	printItems(cmd.OutOrStdout(), items)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
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

	if err := a.svc.RemoveItem(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removido: #%d\n", id)
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
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

	item, err := a.svc.ToggleItem(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatItem(item))
	return nil
}

func runQty(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", "."), 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}
	ctx, cancel := commandContext(cmd.Context(), "cli")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	item, err := a.svc.SetQuantity(ctx, id, qty)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatItem(item))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}

func formatQuantity(q float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(q, 'f', -1, 64), ".", ",")
}

func formatItem(it shopping.Item) string {
	mark := " "
	if it.Completed {
		mark = "x"
	}
	return fmt.Sprintf("#%d [%s] %s x%s", it.ID, mark, it.Name, formatQuantity(it.Quantity))
}

func printItems(w io.Writer, items []shopping.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "A lista está vazia.")
		return
	}
	done := 0
	for _, it := range items {
		if it.Completed {
			done++
		}
		fmt.Fprintln(w, formatItem(it))
	}
	fmt.Fprintf(w, "%d itens, %d no carrinho\n", len(items), done)
}
