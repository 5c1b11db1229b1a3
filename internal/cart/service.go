package cart

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductLookup resolves product references against the catalog. Both
// methods read live data; prices are never cached by the cart.
type ProductLookup interface {
	Product(ctx context.Context, productID string) (ProductSummary, error)
	// Products omits ids that do not exist instead of failing.
	Products(ctx context.Context, productIDs []string) (map[string]ProductSummary, error)
}

type Service struct {
	repo      Repository
	products  ProductLookup
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, products ProductLookup, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		products:  products,
		publisher: NoopPublisher{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateCart(ctx context.Context) (Cart, error) {
	c, err := s.repo.CreateCart(ctx)
	if err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	s.publish(ctx, Event{Type: EventCartCreated, CartID: c.ID})
	return c, nil
}

// GetCart returns the cart with every item priced at the product's current
// price. Items whose product no longer exists in the catalog are left out.
func (s *Service) GetCart(ctx context.Context, cartID string) (View, error) {
	id, err := parseCartID(cartID)
	if err != nil {
		return View{}, err
	}

	c, err := s.repo.GetCart(ctx, id)
	if err != nil {
		return View{}, wrapCart(id, err)
	}
	lines, err := s.lines(ctx, id)
	if err != nil {
		return View{}, err
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalPrice)
	}
	return View{ID: c.ID, CreatedAt: c.CreatedAt, Items: lines, TotalPrice: total.Round(2)}, nil
}

func (s *Service) ListItems(ctx context.Context, cartID string) ([]Line, error) {
	id, err := parseCartID(cartID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCart(ctx, id); err != nil {
		return nil, wrapCart(id, err)
	}
	return s.lines(ctx, id)
}

func (s *Service) GetItem(ctx context.Context, cartID, productID string) (Line, error) {
	id, err := parseCartID(cartID)
	if err != nil {
		return Line{}, err
	}
	it, err := s.repo.FindItem(ctx, id, productID)
	if err != nil {
		return Line{}, wrapItem(id, productID, err)
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return Line{}, err
	}
	return newLine(it, p), nil
}

// AddItem creates the item or adds quantity to the existing one.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, quantity int) (Line, error) {
	if err := validateQuantity(quantity); err != nil {
		return Line{}, err
	}
	if productID == "" {
		return Line{}, fmt.Errorf("%w: productId is required", ErrInvalidArgument)
	}
	id, err := parseCartID(cartID)
	if err != nil {
		return Line{}, err
	}

	p, err := s.product(ctx, productID)
	if err != nil {
		return Line{}, err
	}

	it, err := s.repo.UpsertItem(ctx, id, productID, quantity)
	if err != nil {
		return Line{}, wrapCart(id, err)
	}

	s.publish(ctx, Event{Type: EventItemAdded, CartID: id, ProductID: productID, Quantity: it.Quantity})
	return newLine(it, p), nil
}

// UpdateItemQuantity replaces the quantity of an existing item.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) (Line, error) {
	if err := validateQuantity(quantity); err != nil {
		return Line{}, err
	}
	id, err := parseCartID(cartID)
	if err != nil {
		return Line{}, err
	}

	p, err := s.product(ctx, productID)
	if err != nil {
		return Line{}, err
	}

	it, err := s.repo.SetItemQuantity(ctx, id, productID, quantity)
	if err != nil {
		return Line{}, wrapItem(id, productID, err)
	}
	s.publish(ctx, Event{Type: EventItemUpdated, CartID: id, ProductID: productID, Quantity: it.Quantity})
	return newLine(it, p), nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) error {
	id, err := parseCartID(cartID)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveItem(ctx, id, productID); err != nil {
		return wrapItem(id, productID, err)
	}
	s.publish(ctx, Event{Type: EventItemRemoved, CartID: id, ProductID: productID})
	return nil
}

func (s *Service) DeleteCart(ctx context.Context, cartID string) error {
	id, err := parseCartID(cartID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCart(ctx, id); err != nil {
		return wrapCart(id, err)
	}
	s.publish(ctx, Event{Type: EventCartDeleted, CartID: id})
	return nil
}

func (s *Service) lines(ctx context.Context, cartID string) ([]Line, error) {
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("list items of cart %s: %w", cartID, err)
	}
	if len(items) == 0 {
		return []Line{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}

	lines := make([]Line, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			s.logger.WarnContext(ctx, "cart item references missing product",
				"cartId", cartID, "productId", it.ProductID, "itemId", it.ID)
			continue
		}
		lines = append(lines, newLine(it, p))
	}
	slices.SortFunc(lines, func(a, b Line) int { return cmp.Compare(a.ID, b.ID) })
	return lines, nil
}

func (s *Service) product(ctx context.Context, productID string) (ProductSummary, error) {
	p, err := s.products.Product(ctx, productID)
	if errors.Is(err, ErrNotFound) {
		return ProductSummary{}, fmt.Errorf("%w: no product with the given ID was found: %s", ErrNotFound, productID)
	}
	if err != nil {
		return ProductSummary{}, fmt.Errorf("lookup product %s: %w", productID, err)
	}
	return p, nil
}

func (s *Service) publish(ctx context.Context, ev Event) {
	ev.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "publish cart event failed",
			"event", string(ev.Type), "cartId", ev.CartID, "err", err)
	}
}

func newLine(it Item, p ProductSummary) Line {
	return Line{Item: it, Product: p, TotalPrice: LineTotal(p.Price, it.Quantity)}
}

// LineTotal is price times quantity at two decimals, rounding half up.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

func validateQuantity(q int) error {
	if q < 1 {
		return fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidArgument, q)
	}
	if q > MaxQuantity {
		return fmt.Errorf("%w: quantity must be at most %d, got %d", ErrInvalidArgument, MaxQuantity, q)
	}
	return nil
}

// parseCartID returns the canonical form of a cart id. Anything that is not a
// UUID cannot name a cart, so it is reported as not found.
func parseCartID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: cart %q", ErrNotFound, raw)
	}
	return id.String(), nil
}

func wrapCart(cartID string, err error) error {
	return fmt.Errorf("cart %s: %w", cartID, err)
}

func wrapItem(cartID, productID string, err error) error {
	return fmt.Errorf("cart %s item %s: %w", cartID, productID, err)
}
