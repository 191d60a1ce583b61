package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dronestore/storefront/internal/domain/cart"
)

func newProductsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "products [product-id]",
		Short: "List the catalog, or show one product",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openClient(ctx, opts)
			if err != nil {
				return err
			}
			defer c.close(context.WithoutCancel(ctx))

			if len(args) == 1 {
				p, err := c.gateway.GetProduct(ctx, cart.ProductID(args[0]))
				if err != nil {
					return fmt.Errorf("look up %s: %w", args[0], err)
				}
				printProducts(cmd.OutOrStdout(), []cart.Product{p})
				return nil
			}

			products, err := c.gateway.ListProducts(ctx)
			if err != nil {
				return fmt.Errorf("list products: %w", err)
			}
			printProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}
}
