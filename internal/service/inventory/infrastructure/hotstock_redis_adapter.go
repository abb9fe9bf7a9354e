// internal/service/inventory/infrastructure/hotstock_redis_adapter.go
package infrastructure

import (
	"context"
	"fmt"

	"luzimarket/internal/pkg/redis"
	"luzimarket/internal/service/inventory/domain/port"
)

const (
	holdScriptName       = "hotstock_hold"
	creditBackScriptName = "hotstock_credit_back"
)

// HotStockRedisAdapter 是 port.HotStockGuard 接口的 Redis 实现。
// 它在创建时会加载所有需要的 Lua 脚本。
//
// 可用额度镜像在 hotstock:avail:{productID}，只有被 Prime 过的商品
// 才存在这个 key；key 不存在时判定为"未开启防护"，调用方走普通路径。
type HotStockRedisAdapter struct {
	redisClient *redis.Client
}

// NewHotStockRedisAdapter 创建一个新的热点防护适配器实例。
func NewHotStockRedisAdapter(redisClient *redis.Client) (*HotStockRedisAdapter, error) {
	if err := redisClient.LoadScriptFromContent(holdScriptName, holdScript); err != nil {
		return nil, fmt.Errorf("failed to load hot stock hold script: %w", err)
	}
	if err := redisClient.LoadScriptFromContent(creditBackScriptName, creditBackScript); err != nil {
		return nil, fmt.Errorf("failed to load hot stock credit back script: %w", err)
	}
	return &HotStockRedisAdapter{redisClient: redisClient}, nil
}

// TryHold 原子地检查并扣减热点额度。
func (a *HotStockRedisAdapter) TryHold(ctx context.Context, productID string, quantity int) (port.HoldResult, error) {
	key := availKey(productID)

	result, err := a.redisClient.RunScript(ctx, holdScriptName, []string{key}, quantity)
	if err != nil {
		return 0, fmt.Errorf("hot stock guard failed to run script: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from Lua script: %T", result)
	}

	switch code {
	case -1:
		return port.HoldUnguarded, nil
	case 1:
		return port.HoldGranted, nil
	case 0:
		return port.HoldSoldOut, nil
	default:
		return 0, fmt.Errorf("unknown result code from hold script: %d", code)
	}
}

// CreditBack 把额度还回去。未开启防护的商品是 no-op。
func (a *HotStockRedisAdapter) CreditBack(ctx context.Context, productID string, quantity int) error {
	key := availKey(productID)
	if _, err := a.redisClient.RunScript(ctx, creditBackScriptName, []string{key}, quantity); err != nil {
		return fmt.Errorf("failed to credit hot stock back: %w", err)
	}
	return nil
}

// Prime (运营和管理用) 把商品标记为热点并重置可用额度。
func (a *HotStockRedisAdapter) Prime(ctx context.Context, productID string, available int) error {
	if err := a.redisClient.GetClient().Set(ctx, availKey(productID), available, 0).Err(); err != nil {
		return fmt.Errorf("failed to prime hot product: %w", err)
	}
	return nil
}

func availKey(productID string) string {
	return fmt.Sprintf("hotstock:avail:{%s}", productID)
}

var holdScript = `
-- KEYS[1]: 热点商品可用额度的 Key, 例如: hotstock:avail:{product_123}
-- ARGV[1]: 本次请求的数量

-- 1. key 不存在说明该商品未开启热点防护
if redis.call('exists', KEYS[1]) == 0 then
    return -1
end

-- 2. 获取当前额度
local avail = tonumber(redis.call('get', KEYS[1]))

-- 3. 额度充足则扣减
if avail and avail >= tonumber(ARGV[1]) then
    redis.call('decrby', KEYS[1], ARGV[1])
    return 1 -- 占用成功
else
    return 0 -- 额度不足
end
`

var creditBackScript = `
-- KEYS[1]: 热点商品可用额度的 Key
-- ARGV[1]: 归还的数量

-- 只有开启了防护的商品才需要归还
if redis.call('exists', KEYS[1]) == 1 then
    redis.call('incrby', KEYS[1], ARGV[1])
end
return 1
`
