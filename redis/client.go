package redis

import (
	"context"
	"errors"
	"time"

	redisgo "github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	pkgErrors "github.com/pkg/errors"
)

type Option func(c *Client)

// Model
// 设置redis模式
func Model(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// DB
// 设置redis Node
func DB(db int) Option {
	return func(c *Client) {
		c.db = db
	}
}

func Retry(retry int) Option {
	return func(c *Client) {
		c.retry = retry
	}
}

func ReadTimeout(readTimeout int) Option {
	return func(c *Client) {
		c.readTimeout = readTimeout
	}
}

func WriteTimeout(writeTimeout int) Option {
	return func(c *Client) {
		c.writeTimeout = writeTimeout
	}
}

// PoolSize
// 连接池大小
func PoolSize(poolSize int) Option {
	return func(c *Client) {
		c.poolSize = poolSize
	}
}

// MasterName 哨兵模式master名称
func MasterName(name string) Option {
	return func(c *Client) {
		c.masterName = name
	}
}

func Addrs(addrs []string) Option {
	return func(c *Client) {
		c.addrs = addrs
	}
}

func Username(username string) Option {
	return func(c *Client) {
		c.username = username
	}
}

func Password(password string) Option {
	return func(c *Client) {
		c.password = password
	}
}

type IRedisCmd interface {
	redisgo.Cmdable
	Close() error
}

/////////////////////////////////////////
// 分布式锁 续期由持有者驱动
/////////////////////////////////////////

type Mutex struct {
	*redsync.Mutex
	name   string
	expire time.Duration
}

func (m *Mutex) Name() string {
	return m.name
}

func (m *Mutex) Expiry() time.Duration {
	return m.expire
}

// TryLock 锁已被占用时返回 false, nil
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	err := m.TryLockContext(ctx)
	if err == nil {
		return true, nil
	}
	var taken *redsync.ErrTaken
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
		return false, nil
	}
	return false, err
}

// Renew 延长过期时间 返回false表示锁已丢失
func (m *Mutex) Renew(ctx context.Context) (bool, error) {
	return m.ExtendContext(ctx)
}

func (m *Mutex) UnLock(ctx context.Context) (bool, error) {
	return m.UnlockContext(ctx)
}

type Client struct {
	IRedisCmd
	rs *redsync.Redsync

	masterName   string
	addrs        []string
	model        string
	db           int
	retry        int
	readTimeout  int
	writeTimeout int
	poolSize     int
	username     string
	password     string
}

func NewClient(opts ...Option) (*Client, error) {
	c := Client{
		model:        typeSingleton,
		retry:        defaultRetry,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		poolSize:     defaultPoolSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if len(c.addrs) == 0 {
		return nil, pkgErrors.New("redis addr is empty")
	}
	build, has := builders[c.model]
	if !has {
		return nil, pkgErrors.Errorf("redis model %q not support", c.model)
	}
	build(&c)
	return &c, nil
}

// NewMutex value为空时由redsync生成随机值
func (c *Client) NewMutex(name string, expiry time.Duration, value string) *Mutex {
	if expiry <= 0 {
		expiry = defaultLockExpiry
	}
	opts := []redsync.Option{
		redsync.WithExpiry(expiry),
		// 抢锁只尝试一次 重试节奏由调用方控制
		redsync.WithTries(1),
	}
	if value != "" {
		opts = append(opts, redsync.WithGenValueFunc(func() (string, error) {
			return value, nil
		}))
	}
	return &Mutex{
		Mutex:  c.rs.NewMutex(name, opts...),
		name:   name,
		expire: expiry,
	}
}
