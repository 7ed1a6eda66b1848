package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/config"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("缓存未命中")

// Client Redis 客户端封装
// 用于 Token 黑名单、接口限流与请假汇总缓存
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// CheckRateLimit 基于有序集合的滑动窗口限流
// 返回 true 表示本次请求允许通过
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if count.Val() >= int64(limit) {
		return false, nil
	}

	pipe = c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ── 汇总缓存 ──

const (
	summaryPrefix     = "summary:"
	subjectVersionKey = "summary:subjects:version"
	userVersionPrefix = "summary:user:version:"
)

// SummaryVersion 返回用户汇总缓存的当前版本（科目版本.用户版本）
// 调用方须在回源读取前取得版本，并以同一版本写回；期间发生的失效会使写回落在旧键上
func (c *Client) SummaryVersion(ctx context.Context, userID string) (string, error) {
	vals, err := c.rdb.MGet(ctx, subjectVersionKey, userVersionPrefix+userID).Result()
	if err != nil {
		return "", err
	}
	return versionOf(vals[0]) + "." + versionOf(vals[1]), nil
}

// GetSummary 读取指定版本的汇总缓存，未命中返回 ErrCacheMiss
func (c *Client) GetSummary(ctx context.Context, userID, version string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, summaryKey(version, userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// SetSummary 写入指定版本的汇总缓存
func (c *Client) SetSummary(ctx context.Context, userID, version string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, summaryKey(version, userID), data, ttl).Err()
}

// InvalidateSummary 递增用户版本号（请假记录增删改后调用），旧版本缓存随 TTL 过期
func (c *Client) InvalidateSummary(ctx context.Context, userID string) error {
	return c.rdb.Incr(ctx, userVersionPrefix+userID).Err()
}

// BumpSubjectVersion 科目增删改后递增版本号，使全部用户的汇总缓存失效
func (c *Client) BumpSubjectVersion(ctx context.Context) error {
	return c.rdb.Incr(ctx, subjectVersionKey).Err()
}

func summaryKey(version, userID string) string {
	return summaryPrefix + "v" + version + ":" + userID
}

// versionOf MGET 结果中缺失的键视为版本 0
func versionOf(v interface{}) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "0"
	}
	return s
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
