package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"github.com/dronestore/storefront/internal/infrastructure/auth"
	"github.com/dronestore/storefront/internal/infrastructure/cache"
	"github.com/dronestore/storefront/internal/infrastructure/logger"
	"github.com/dronestore/storefront/internal/infrastructure/storefront"
	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
)

// client is the gateway plus the ambient stack it runs on
type client struct {
	log     *zap.Logger
	tel     *telemetry.Provider
	metrics *telemetry.CartMetrics
	session *auth.Session
	gateway *storefront.CartGateway
}

func openClient(ctx context.Context, opts *options) (*client, error) {
	cfg := opts.cfg

	baseLog, err := logger.New(logger.FromConfig(cfg.Log))
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	c := &client{log: tel.BridgeLogger(baseLog), tel: tel}

	if c.metrics, err = telemetry.NewCartMetrics(tel.Meter(telemetry.MeterName)); err != nil {
		c.close(ctx)
		return nil, err
	}
	if c.session, err = auth.NewSessionWithToken(opts.token); err != nil {
		c.close(ctx)
		return nil, fmt.Errorf("invalid --token: %w", err)
	}

	httpClient := &http.Client{
		Timeout:   cfg.Gateway.RequestTimeout,
		Transport: otelhttp.NewTransport(c.metrics.Transport(http.DefaultTransport)),
	}
	c.gateway, err = storefront.NewCartGateway(
		storefront.GatewayConfigFrom(cfg.Gateway),
		c.session,
		storefront.WithHTTPClient(httpClient),
		storefront.WithGatewayLogger(c.log),
	)
	if err != nil {
		c.close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *client) close(ctx context.Context) {
	if err := c.tel.Shutdown(ctx); err != nil {
		c.log.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = c.log.Sync()
}

// shop is a started cart engine for one invocation
type shop struct {
	*client
	kv    cache.KeyValueStore
	store *cartsync.Store
}

// openShop starts the engine and waits for the initial load to settle
func openShop(ctx context.Context, opts *options, out io.Writer) (*shop, error) {
	c, err := openClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	cfg := opts.cfg

	kv, err := cache.NewStoreFactory(cfg.Storage, cfg.Redis, cache.WithLogger(c.log)).CreateStore()
	if err != nil {
		c.close(ctx)
		return nil, err
	}

	store, err := cartsync.NewStore(cartsync.Options{
		Persistence:   cache.NewCartStorage(kv, c.log),
		Gateway:       c.gateway,
		Identity:      c.session,
		Routes:        cartsync.NewRouteTracker(opts.route),
		Reporter:      logger.NewErrorReporter(c.log),
		Notifier:      notifiers{newNoticePrinter(out), logger.NewNoticeLogger(c.log)},
		Auth:          &authHint{out: out},
		Recorder:      c.metrics,
		Logger:        c.log,
		RemoteTimeout: cfg.Gateway.ReconcileTimeout,
	})
	if err != nil {
		_ = kv.Close()
		c.close(ctx)
		return nil, err
	}

	s := &shop{client: c, kv: kv, store: store}
	if err := store.Start(ctx); err != nil {
		s.close(ctx)
		return nil, err
	}
	store.Wait()
	return s, nil
}

// close drains pending reconciliation before shutting the engine down
func (s *shop) close(ctx context.Context) {
	s.store.Wait()
	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.kv.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Warn("cart shutdown incomplete", zap.Error(err))
	}
	s.client.close(ctx)
}

type notifiers []cartsync.Notifier

func (n notifiers) Notify(ctx context.Context, notice cartsync.Notice) {
	for _, notifier := range n {
		notifier.Notify(ctx, notice)
	}
}

// authHint tells the shopper once per invocation that the token was rejected
type authHint struct {
	out  io.Writer
	once sync.Once
}

func (h *authHint) AuthRequired(_ context.Context, op cartsync.Operation) {
	h.once.Do(func() {
		fmt.Fprintln(h.out, warningStyle.Render(fmt.Sprintf(
			"! %s was rejected: sign in again with --token or STOREFRONT_TOKEN", op)))
	})
}
