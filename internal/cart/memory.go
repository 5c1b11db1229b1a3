package cart

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type memoryCart struct {
	mu      sync.Mutex
	cart    Cart
	items   map[string]Item
	deleted bool
}

// MemoryRepository keeps carts in process memory. Each cart has its own lock;
// the index lock is only held to look up, add or drop a cart.
type MemoryRepository struct {
	mu     sync.RWMutex
	carts  map[string]*memoryCart
	nextID atomic.Int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts: make(map[string]*memoryCart),
		now:   time.Now,
	}
}

func (r *MemoryRepository) CreateCart(ctx context.Context) (Cart, error) {
	c := Cart{ID: uuid.NewString(), CreatedAt: r.now().UTC()}

	r.mu.Lock()
	r.carts[c.ID] = &memoryCart{cart: c, items: make(map[string]Item)}
	r.mu.Unlock()

	return c, nil
}

// lock returns the cart with its mutex held. The caller must unlock it.
func (r *MemoryRepository) lock(cartID string) (*memoryCart, error) {
	r.mu.RLock()
	mc, ok := r.carts[cartID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	mc.mu.Lock()
	if mc.deleted {
		mc.mu.Unlock()
		return nil, ErrNotFound
	}
	return mc, nil
}

func (r *MemoryRepository) GetCart(ctx context.Context, cartID string) (Cart, error) {
	mc, err := r.lock(cartID)
	if err != nil {
		return Cart{}, err
	}
	defer mc.mu.Unlock()
	return mc.cart, nil
}

func (r *MemoryRepository) DeleteCart(ctx context.Context, cartID string) error {
	mc, err := r.lock(cartID)
	if err != nil {
		return err
	}
	mc.deleted = true
	mc.items = nil
	mc.mu.Unlock()

	r.mu.Lock()
	delete(r.carts, cartID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) FindItem(ctx context.Context, cartID, productID string) (Item, error) {
	mc, err := r.lock(cartID)
	if err != nil {
		return Item{}, err
	}
	defer mc.mu.Unlock()

	it, ok := mc.items[productID]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (r *MemoryRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	mc, err := r.lock(cartID)
	if err != nil {
		return Item{}, err
	}
	defer mc.mu.Unlock()

	it, ok := mc.items[productID]
	if it.Quantity > MaxQuantity-quantity {
		return Item{}, errQuantityOverflow(productID)
	}
	if !ok {
		it = Item{ID: r.nextID.Add(1), CartID: cartID, ProductID: productID}
	}
	it.Quantity += quantity
	mc.items[productID] = it
	return it, nil
}

func (r *MemoryRepository) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	mc, err := r.lock(cartID)
	if err != nil {
		return Item{}, err
	}
	defer mc.mu.Unlock()

	it, ok := mc.items[productID]
	if !ok {
		return Item{}, ErrNotFound
	}
	it.Quantity = quantity
	mc.items[productID] = it
	return it, nil
}

func (r *MemoryRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	mc, err := r.lock(cartID)
	if err != nil {
		return err
	}
	defer mc.mu.Unlock()

	if _, ok := mc.items[productID]; !ok {
		return ErrNotFound
	}
	delete(mc.items, productID)
	return nil
}

func (r *MemoryRepository) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	mc, err := r.lock(cartID)
	if err != nil {
		return []Item{}, nil
	}
	defer mc.mu.Unlock()

	items := make([]Item, 0, len(mc.items))
	for _, it := range mc.items {
		items = append(items, it)
	}
	return items, nil
}
