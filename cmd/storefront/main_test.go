package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/dronestore/storefront/internal/application/cart"
	"github.com/dronestore/storefront/internal/infrastructure/auth"
	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/persistence"
	"github.com/dronestore/storefront/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// startServer runs the cart API on sqlite with the demo catalog and returns
// its /api/v1 base URL. Tokens are signed with the development secret the
// CLI falls back to.
func startServer(t *testing.T) string {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	products := persistence.NewGormProductRepository(db.DB)
	productService := cartapp.NewProductService(products)
	_, err = productService.Seed(context.Background(), cartapp.DemoCatalog)
	require.NoError(t, err)

	api, err := router.NewAPI(router.APIConfig{
		Name: "storefront",
		JWT: auth.NewJWTService(config.JWTConfig{
			Secret:                config.DevelopmentJWTSecret,
			AccessTokenExpiration: time.Hour,
			Issuer:                "storefront",
		}),
		Carts:    cartapp.NewService(persistence.NewGormCartLineRepository(db.DB), products, nil),
		Products: productService,
	})
	require.NoError(t, err)
	t.Cleanup(api.Close)

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1"
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeView(t *testing.T, out string) cartView {
	t.Helper()
	var view cartView
	require.NoError(t, json.Unmarshal([]byte(out), &view), out)
	return view
}

func TestProductsCommand(t *testing.T) {
	t.Setenv("STOREFRONT_TOKEN", "")
	base := startServer(t)

	out, _, err := run(t, "--gateway", base, "products")
	require.NoError(t, err)
	for _, p := range cartapp.DemoCatalog {
		assert.Contains(t, out, string(p.ID))
	}
	assert.Contains(t, out, "sold out")

	out, _, err = run(t, "--gateway", base, "products", "lipo-4s")
	require.NoError(t, err)
	assert.Contains(t, out, "35.50")

	_, _, err = run(t, "--gateway", base, "products", "ghost")
	assert.Error(t, err)
}

func TestTokenCommands(t *testing.T) {
	t.Setenv("STOREFRONT_TOKEN", "")

	out, _, err := run(t, "token", "issue", "pilot-7", "--username", "pilot")
	require.NoError(t, err)
	token := string(bytes.TrimSpace([]byte(out)))

	claims, err := auth.NewJWTService(config.JWTConfig{Secret: config.DevelopmentJWTSecret}).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "pilot-7", claims.UserID)

	out, _, err = run(t, "--token", token, "token", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "user:pilot-7\n", out)

	out, _, err = run(t, "token", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "guest\n", out)

	_, _, err = run(t, "--token", "not-a-jwt", "token", "whoami")
	assert.Error(t, err)
}

func TestCartCommands_Guest(t *testing.T) {
	t.Setenv("STOREFRONT_TOKEN", "")
	base := startServer(t)
	guest := []string{"--gateway", base, "--storage", "badger", "--badger-path", t.TempDir()}
	cartCmd := func(args ...string) (string, string, error) {
		return run(t, append(append(append([]string{}, guest...), "cart"), args...)...)
	}

	out, _, err := cartCmd("add", "lipo-4s", "2", "--json")
	require.NoError(t, err)
	view := decodeView(t, out)
	assert.Equal(t, "guest", view.Identity)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "71", view.Total)

	t.Run("cart survives between invocations", func(t *testing.T) {
		out, _, err := cartCmd("add", "prop-kit", "--json")
		require.NoError(t, err)
		view := decodeView(t, out)
		assert.Equal(t, 3, view.ItemCount)
		assert.Equal(t, "83", view.Total)
	})

	t.Run("stock ceiling", func(t *testing.T) {
		out, stderr, err := cartCmd("update", "lipo-4s", "500", "--json")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Reached stock limit")
		item := decodeView(t, out).Items[0]
		assert.Equal(t, 40, item.Quantity)
	})

	t.Run("out of stock product", func(t *testing.T) {
		_, stderr, err := cartCmd("add", "gimbal-3ax")
		require.ErrorIs(t, err, errNotApplied)
		assert.Contains(t, stderr, "out of stock")
	})

	t.Run("remove unknown item", func(t *testing.T) {
		_, _, err := cartCmd("remove", "dx-500")
		assert.ErrorIs(t, err, errNotApplied)
	})

	t.Run("bad quantity", func(t *testing.T) {
		_, _, err := cartCmd("update", "lipo-4s", "lots")
		assert.Error(t, err)
	})

	t.Run("clear", func(t *testing.T) {
		out, stderr, err := cartCmd("clear")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Cart cleared")
		assert.Contains(t, out, "empty")

		out, _, err = cartCmd("show", "--json")
		require.NoError(t, err)
		assert.Empty(t, decodeView(t, out).Items)
	})
}

func TestCartCommands_Authenticated(t *testing.T) {
	t.Setenv("STOREFRONT_TOKEN", "")
	base := startServer(t)

	out, _, err := run(t, "token", "issue", "pilot-1")
	require.NoError(t, err)
	token := string(bytes.TrimSpace([]byte(out)))

	// memory storage: anything seen on the next run came from the server
	user := []string{"--gateway", base, "--storage", "memory", "--token", token, "cart"}
	cartCmd := func(args ...string) (string, string, error) {
		return run(t, append(append([]string{}, user...), args...)...)
	}

	_, _, err = cartCmd("add", "fpv-goggles", "2")
	require.NoError(t, err)

	out, _, err = cartCmd("show", "--json")
	require.NoError(t, err)
	view := decodeView(t, out)
	assert.Equal(t, "user:pilot-1", view.Identity)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "fpv-goggles", string(view.Items[0].ID))
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "378", view.Total)

	t.Run("sync keeps items within stock", func(t *testing.T) {
		out, _, err := cartCmd("sync", "--json")
		require.NoError(t, err)
		view := decodeView(t, out)
		require.Len(t, view.Items, 1)
		require.NotNil(t, view.Items[0].Stock)
		assert.Equal(t, 12, *view.Items[0].Stock)
	})

	t.Run("admin route stays local", func(t *testing.T) {
		out, _, err := run(t, "--gateway", base, "--storage", "memory", "--token", token,
			"--route", "/admin/orders", "cart", "show", "--json")
		require.NoError(t, err)
		view := decodeView(t, out)
		assert.Equal(t, "admin", view.Route)
		assert.Empty(t, view.Items)
	})

	t.Run("remove", func(t *testing.T) {
		_, _, err := cartCmd("remove", "fpv-goggles")
		require.NoError(t, err)

		out, _, err := cartCmd("show", "--json")
		require.NoError(t, err)
		assert.Empty(t, decodeView(t, out).Items)
	})
}
