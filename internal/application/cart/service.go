// Package cart implements the server-authoritative cart behind the storefront API.
package cart

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/catalog"
	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const lockStripes = 64

// Service handles cart operations for authenticated users.
// Mutations for one user are serialized so the stock check and the write
// observe the same line.
type Service struct {
	lines    cart.LineRepository
	products catalog.ProductRepository
	validate *validator.Validate
	logger   *zap.Logger
	locks    [lockStripes]sync.Mutex
}

// NewService creates a new cart Service
func NewService(lines cart.LineRepository, products catalog.ProductRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		lines:    lines,
		products: products,
		validate: validator.New(),
		logger:   logger.Named("cart_service"),
	}
}

func (s *Service) lock(userID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Get returns the user's cart. Lines whose product left the catalog are omitted.
func (s *Service) Get(ctx context.Context, userID string) (*CartView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "get", telemetry.SpanAttrUserID, userID)
	defer span.End()

	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	view, err := s.view(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrItemCount, view.ItemCount)
	return view, nil
}

// AddItem adds units to a line, creating it when absent
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*CartView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "add_item",
		telemetry.SpanAttrUserID, in.UserID,
		telemetry.SpanAttrProductID, in.ProductID,
		telemetry.SpanAttrQuantity, in.Quantity,
	)
	defer span.End()

	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	defer s.lock(in.UserID)()

	product, err := s.findProduct(ctx, cart.ProductID(in.ProductID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	line, err := s.lines.FindByUserAndProduct(ctx, in.UserID, product.ID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		line = nil
	case err != nil:
		telemetry.RecordError(span, err)
		return nil, err
	}

	current := 0
	if line != nil {
		current = line.Quantity
	}
	want := current + in.Quantity
	if err := checkStock(product, want); err != nil {
		telemetry.AddEvent(span, "stock_rejected", telemetry.SpanAttrQuantity, want)
		s.logger.Debug("Add rejected by stock ceiling",
			zap.String("user_id", in.UserID),
			zap.String("product_id", string(product.ID)),
			zap.Int("requested", want),
			zap.Int("stock", product.Stock),
		)
		return nil, err
	}

	if line == nil {
		if line, err = cart.NewLine(in.UserID, product.ID, want); err != nil {
			return nil, err
		}
	} else if err := line.SetQuantity(want); err != nil {
		return nil, err
	}
	if err := s.lines.Save(ctx, line); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.view(ctx, in.UserID)
}

// SetQuantity sets a line to an absolute quantity. Zero removes the line and
// a missing line is created.
func (s *Service) SetQuantity(ctx context.Context, in SetQuantityInput) (*CartView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "set_quantity",
		telemetry.SpanAttrUserID, in.UserID,
		telemetry.SpanAttrProductID, in.ProductID,
		telemetry.SpanAttrQuantity, in.Quantity,
	)
	defer span.End()

	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if in.Quantity == 0 {
		return s.RemoveItem(ctx, in.UserID, in.ProductID)
	}
	defer s.lock(in.UserID)()

	product, err := s.findProduct(ctx, cart.ProductID(in.ProductID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := checkStock(product, in.Quantity); err != nil {
		telemetry.AddEvent(span, "stock_rejected", telemetry.SpanAttrQuantity, in.Quantity)
		return nil, err
	}

	line, err := s.lines.FindByUserAndProduct(ctx, in.UserID, product.ID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if line, err = cart.NewLine(in.UserID, product.ID, in.Quantity); err != nil {
			return nil, err
		}
	case err != nil:
		telemetry.RecordError(span, err)
		return nil, err
	default:
		if err := line.SetQuantity(in.Quantity); err != nil {
			return nil, err
		}
	}
	if err := s.lines.Save(ctx, line); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.view(ctx, in.UserID)
}

// RemoveItem deletes a line. Removing an absent line is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*CartView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "remove_item",
		telemetry.SpanAttrUserID, userID,
		telemetry.SpanAttrProductID, productID,
	)
	defer span.End()

	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	if productID == "" {
		return nil, shared.ErrInvalidInput.Withf("product id is required")
	}
	defer s.lock(userID)()

	if err := s.lines.Delete(ctx, userID, cart.ProductID(productID)); err != nil && !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.view(ctx, userID)
}

// Clear removes every line the user owns
func (s *Service) Clear(ctx context.Context, userID string) (*CartView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "clear", telemetry.SpanAttrUserID, userID)
	defer span.End()

	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	defer s.lock(userID)()

	if err := s.lines.DeleteByUser(ctx, userID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &CartView{Items: []ItemView{}}, nil
}

func (s *Service) view(ctx context.Context, userID string) (*CartView, error) {
	lines, err := s.lines.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]cart.ProductID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return newCartView(lines, products), nil
}

func (s *Service) findProduct(ctx context.Context, id cart.ProductID) (*catalog.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.Withf("product %s", id)
		}
		return nil, err
	}
	return product, nil
}

func (s *Service) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "UserID" {
					return shared.ErrUnauthorized
				}
			}
			return shared.ErrInvalidInput.Withf("%s failed on %s", verrs[0].Field(), verrs[0].Tag())
		}
		return shared.ErrInvalidInput.Withf("%v", err)
	}
	return nil
}

func checkStock(p *catalog.Product, quantity int) error {
	if quantity > MaxLineQuantity {
		return shared.ErrInvalidInput.Withf("at most %d units per line", MaxLineQuantity)
	}
	if !p.Available(quantity) {
		return shared.ErrInsufficientStock.Withf("%d requested, %d available", quantity, p.Stock)
	}
	return nil
}
