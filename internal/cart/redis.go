package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Keys share the {cartID} hash tag so every script touches a single slot.
func cartKey(cartID string) string { return fmt.Sprintf("cart:{%s}", cartID) }
func itemsKey(cartID string) string { return fmt.Sprintf("cart:{%s}:items", cartID) }
func itemIDsKey(cartID string) string { return fmt.Sprintf("cart:{%s}:item_ids", cartID) }

const createdAtField = "created_at"

// Item scripts reply {id, quantity}; id -1 means the cart or item is missing
// and -2 means the new quantity would exceed MaxQuantity.
var upsertItemScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {-1, 0}
end
local cur = tonumber(redis.call('HGET', KEYS[2], ARGV[1]) or '0')
if cur + tonumber(ARGV[2]) > tonumber(ARGV[3]) then
  return {-2, cur}
end
local id = redis.call('HGET', KEYS[3], ARGV[1])
if not id then
  id = redis.call('HINCRBY', KEYS[1], 'item_seq', 1)
  redis.call('HSET', KEYS[3], ARGV[1], id)
end
local qty = redis.call('HINCRBY', KEYS[2], ARGV[1], ARGV[2])
return {tonumber(id), qty}
`)

var setItemScript = redis.NewScript(`
local id = redis.call('HGET', KEYS[3], ARGV[1])
if redis.call('EXISTS', KEYS[1]) == 0 or not id then
  return {-1, 0}
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
return {tonumber(id), tonumber(ARGV[2])}
`)

var removeItemScript = redis.NewScript(`
local n = redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
return n
`)

// RedisRepository keeps each cart in three hashes: the cart itself, product
// quantities and product item ids. Writes to items run as Lua scripts, which
// Redis executes atomically. Item ids are sequential per cart.
type RedisRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

func (r *RedisRepository) CreateCart(ctx context.Context) (Cart, error) {
	c := Cart{ID: uuid.NewString(), CreatedAt: r.now().UTC()}
	err := r.client.HSet(ctx, cartKey(c.ID), createdAtField, c.CreatedAt.Format(time.RFC3339Nano)).Err()
	if err != nil {
		return Cart{}, fmt.Errorf("redis create cart: %w", err)
	}
	return c, nil
}

func (r *RedisRepository) GetCart(ctx context.Context, cartID string) (Cart, error) {
	raw, err := r.client.HGet(ctx, cartKey(cartID), createdAtField).Result()
	if errors.Is(err, redis.Nil) {
		return Cart{}, ErrNotFound
	}
	if err != nil {
		return Cart{}, fmt.Errorf("redis get cart: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return Cart{}, fmt.Errorf("parse created_at %q: %w", raw, err)
	}
	return Cart{ID: cartID, CreatedAt: createdAt}, nil
}

func (r *RedisRepository) DeleteCart(ctx context.Context, cartID string) error {
	n, err := r.client.Del(ctx, cartKey(cartID), itemsKey(cartID), itemIDsKey(cartID)).Result()
	if err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisRepository) FindItem(ctx context.Context, cartID, productID string) (Item, error) {
	var qtyCmd, idCmd *redis.StringCmd
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		qtyCmd = pipe.HGet(ctx, itemsKey(cartID), productID)
		idCmd = pipe.HGet(ctx, itemIDsKey(cartID), productID)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("redis find item: %w", err)
	}

	qty, err := qtyCmd.Int()
	if err != nil {
		return Item{}, fmt.Errorf("parse quantity: %w", err)
	}
	id, err := idCmd.Int64()
	if err != nil {
		return Item{}, fmt.Errorf("parse item id: %w", err)
	}
	return Item{ID: id, CartID: cartID, ProductID: productID, Quantity: qty}, nil
}

func (r *RedisRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	return r.runItemScript(ctx, upsertItemScript, cartID, productID, quantity)
}

func (r *RedisRepository) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	return r.runItemScript(ctx, setItemScript, cartID, productID, quantity)
}

func (r *RedisRepository) runItemScript(ctx context.Context, script *redis.Script, cartID, productID string, quantity int) (Item, error) {
	keys := []string{cartKey(cartID), itemsKey(cartID), itemIDsKey(cartID)}
	res, err := script.Run(ctx, r.client, keys, productID, quantity, MaxQuantity).Int64Slice()
	if err != nil {
		return Item{}, fmt.Errorf("redis item script: %w", err)
	}
	if len(res) != 2 {
		return Item{}, fmt.Errorf("redis item script: unexpected reply %v", res)
	}
	switch res[0] {
	case -1:
		return Item{}, ErrNotFound
	case -2:
		return Item{}, errQuantityOverflow(productID)
	}
	return Item{ID: res[0], CartID: cartID, ProductID: productID, Quantity: int(res[1])}, nil
}

func (r *RedisRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	keys := []string{cartKey(cartID), itemsKey(cartID), itemIDsKey(cartID)}
	n, err := removeItemScript.Run(ctx, r.client, keys, productID).Int64()
	if err != nil {
		return fmt.Errorf("redis remove item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisRepository) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	var qtyCmd, idCmd *redis.MapStringStringCmd
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		qtyCmd = pipe.HGetAll(ctx, itemsKey(cartID))
		idCmd = pipe.HGetAll(ctx, itemIDsKey(cartID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list items: %w", err)
	}

	ids := idCmd.Val()
	items := make([]Item, 0, len(qtyCmd.Val()))
	for productID, rawQty := range qtyCmd.Val() {
		qty, err := strconv.Atoi(rawQty)
		if err != nil {
			return nil, fmt.Errorf("parse quantity for %s: %w", productID, err)
		}
		id, err := strconv.ParseInt(ids[productID], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse item id for %s: %w", productID, err)
		}
		items = append(items, Item{ID: id, CartID: cartID, ProductID: productID, Quantity: qty})
	}
	return items, nil
}
