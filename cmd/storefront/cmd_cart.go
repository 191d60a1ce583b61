package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"github.com/dronestore/storefront/internal/domain/cart"
)

func newCartCommand(opts *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the current cart",
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the resulting cart as JSON")

	// withShop runs fn on a started engine, then prints the cart once every
	// queued server call has been reconciled
	withShop := func(fn func(ctx context.Context, s *shop, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			s, err := openShop(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close(context.WithoutCancel(ctx))

			if err := fn(ctx, s, out); err != nil {
				return err
			}
			s.store.Wait()
			if jsonOutput {
				return printCartJSON(out, s.store.Snapshot())
			}
			printCart(out, s.store.Snapshot())
			return nil
		}
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
	}
	show.RunE = withShop(func(context.Context, *shop, io.Writer) error { return nil })

	add := &cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Add a catalog product to the cart (quantity defaults to 1)",
		Args:  cobra.RangeArgs(1, 2),
	}
	add.RunE = func(cmd *cobra.Command, args []string) error {
		qty := 1
		if len(args) == 2 {
			n, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			qty = n
		}
		return withShop(func(ctx context.Context, s *shop, _ io.Writer) error {
			product, err := s.gateway.GetProduct(ctx, cart.ProductID(args[0]))
			if err != nil {
				return fmt.Errorf("look up %s: %w", args[0], err)
			}
			return resultError(args[0], s.store.AddToCart(ctx, product, qty))
		})(cmd, args)
	}

	update := &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set the quantity of a cart item (0 removes it)",
		Args:  cobra.ExactArgs(2),
	}
	update.RunE = func(cmd *cobra.Command, args []string) error {
		qty, err := parseQuantity(args[1])
		if err != nil {
			return err
		}
		return withShop(func(ctx context.Context, s *shop, _ io.Writer) error {
			return resultError(args[0], s.store.UpdateQuantity(ctx, cart.ProductID(args[0]), qty))
		})(cmd, args)
	}

	remove := &cobra.Command{
		Use:     "remove <product-id>",
		Aliases: []string{"rm"},
		Short:   "Remove an item from the cart",
		Args:    cobra.ExactArgs(1),
	}
	remove.RunE = func(cmd *cobra.Command, args []string) error {
		return withShop(func(ctx context.Context, s *shop, _ io.Writer) error {
			return resultError(args[0], s.store.RemoveFromCart(ctx, cart.ProductID(args[0])))
		})(cmd, args)
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
	}
	clearCmd.RunE = withShop(func(ctx context.Context, s *shop, _ io.Writer) error {
		return resultError("", s.store.ClearCart(ctx))
	})

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh stock limits of cart items from the catalog",
		Args:  cobra.NoArgs,
	}
	syncCmd.RunE = withShop(func(ctx context.Context, s *shop, out io.Writer) error {
		return syncStock(ctx, s, out)
	})

	cmd.AddCommand(show, add, update, remove, clearCmd, syncCmd)
	return cmd
}

// syncStock applies the catalog's current stock to every cart item. Items
// missing from the catalog are left alone.
func syncStock(ctx context.Context, s *shop, out io.Writer) error {
	products, err := s.gateway.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	stock := make(map[cart.ProductID]int, len(products))
	for _, p := range products {
		if p.Stock != nil {
			stock[p.ID] = *p.Stock
		}
	}

	for _, item := range s.store.Items() {
		ceiling, ok := stock[item.ID]
		if !ok {
			continue
		}
		switch res := s.store.SyncStock(ctx, item.ID, ceiling); res.Status {
		case cartsync.StatusRemoved:
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("! %s sold out and was removed", item.ID)))
		case cartsync.StatusLimited:
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("! %s reduced to %d", item.ID, res.Quantity)))
		}
	}
	return nil
}

var errNotApplied = errors.New("cart unchanged")

// resultError turns a mutation result the shopper should know about into an error
func resultError(id string, res cartsync.Result) error {
	if res.OK() {
		return nil
	}
	switch res.Status {
	case cartsync.StatusOutOfStock:
		return fmt.Errorf("%w: %s is out of stock", errNotApplied, id)
	case cartsync.StatusNotFound:
		return fmt.Errorf("%w: %s is not in the cart", errNotApplied, id)
	case cartsync.StatusInvalid:
		return fmt.Errorf("%w: quantity must be positive", errNotApplied)
	case cartsync.StatusNotReady:
		return fmt.Errorf("%w: cart is still loading", errNotApplied)
	default:
		return fmt.Errorf("%w: %s", errNotApplied, res.Status)
	}
}
