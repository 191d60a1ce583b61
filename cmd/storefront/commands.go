package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dronestore/storefront/internal/infrastructure/config"
)

// options are the persistent flags shared by every command
type options struct {
	token      string
	route      string
	gatewayURL string
	storage    string
	badgerPath string
	verbose    bool

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Shop the storefront cart from the terminal",
		Long: `storefront drives the cart synchronization engine against a storefront API.

Guests keep their cart in the local storage backend. With a bearer token the
cart lives on the server and the local copy is only a fallback. Routes under
/admin keep the cart local-only regardless of the token.

Examples:
  storefront products
  storefront cart add lipo-4s 2
  storefront --storage badger --badger-path ~/.cache/storefront cart show
  STOREFRONT_TOKEN=... storefront cart sync`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.token, "token", os.Getenv("STOREFRONT_TOKEN"), "bearer token (default $STOREFRONT_TOKEN); empty shops as a guest")
	flags.StringVar(&opts.route, "route", "/", "current page path; /admin paths keep the cart local")
	flags.StringVar(&opts.gatewayURL, "gateway", "", "cart API base URL (overrides gateway.base_url)")
	flags.StringVar(&opts.storage, "storage", "", "local cart storage: memory, redis, badger or s3 (overrides storage.backend)")
	flags.StringVar(&opts.badgerPath, "badger-path", "", "badger directory (overrides storage.badger_path)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		newCartCommand(opts),
		newProductsCommand(opts),
		newTokenCommand(opts),
	)
	return root
}

// load reads the configuration and applies flag overrides. Logs always go
// to stderr so command output stays parseable.
func (o *options) load() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if o.gatewayURL != "" {
		cfg.Gateway.BaseURL = o.gatewayURL
	}
	if o.storage != "" {
		cfg.Storage.Backend = o.storage
	}
	if o.badgerPath != "" {
		cfg.Storage.BadgerPath = o.badgerPath
	}
	cfg.Log.Output = "stderr"
	if !o.verbose {
		cfg.Log.Level = "warn"
	}
	o.cfg = cfg
	return nil
}

func parseQuantity(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("quantity must be a whole number, got %q", arg)
	}
	return n, nil
}
