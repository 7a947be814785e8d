package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ByLCY/invoicestudio/document"
)

// KV 是模板缓存使用的键值接口，Redis 与进程内实现都满足它。
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
}

// TemplateBackend 是缓存背后的真实模板存储。
type TemplateBackend interface {
	GetTemplate(ctx context.Context, id string) (*document.Template, error)
	SaveTemplate(ctx context.Context, t *document.Template) error
	ListTemplates(ctx context.Context) ([]*document.Template, error)
}

// Cache 是读穿透、写失效的模板缓存。缓存层出错只记录日志，不影响读写结果。
type Cache struct {
	backend TemplateBackend
	kv      KV
	ttl     time.Duration
	prefix  string
}

var _ TemplateBackend = (*Cache)(nil)

// NewCache 包装 backend。ttl 为 0 表示不过期。
func NewCache(backend TemplateBackend, kv KV, ttl time.Duration) *Cache {
	return &Cache{backend: backend, kv: kv, ttl: ttl, prefix: "invoicestudio:template:"}
}

func (c *Cache) key(id string) string { return c.prefix + id }

// GetTemplate 先查缓存，未命中时回源并回填。
func (c *Cache) GetTemplate(ctx context.Context, id string) (*document.Template, error) {
	if raw, ok, err := c.kv.Get(ctx, c.key(id)); err != nil {
		log.Printf("[WARN] template cache get %s: %v", id, err)
	} else if ok {
		t, err := document.Unmarshal([]byte(raw))
		if err == nil {
			t.ID = id
			return t, nil
		}
		log.Printf("[WARN] template cache entry %s is corrupt: %v", id, err)
	}

	t, err := c.backend.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := document.Marshal(t); err == nil {
		if err := c.kv.Set(ctx, c.key(id), string(data), c.ttl); err != nil {
			log.Printf("[WARN] template cache set %s: %v", id, err)
		}
	}
	return t, nil
}

// SaveTemplate 写入后端并让缓存失效。
func (c *Cache) SaveTemplate(ctx context.Context, t *document.Template) error {
	if err := c.backend.SaveTemplate(ctx, t); err != nil {
		return err
	}
	if _, err := c.kv.Delete(ctx, c.key(t.ID)); err != nil {
		log.Printf("[WARN] template cache delete %s: %v", t.ID, err)
	}
	return nil
}

// ListTemplates 直接回源。
func (c *Cache) ListTemplates(ctx context.Context) ([]*document.Template, error) {
	return c.backend.ListTemplates(ctx)
}

// MapKV 是进程内 KV，未配置 Redis 时使用。
type MapKV struct {
	mu   sync.Mutex
	data map[string]mapEntry
	now  func() time.Time
}

type mapEntry struct {
	value   string
	expires time.Time
}

// NewMapKV 创建空的进程内 KV。
func NewMapKV() *MapKV {
	return &MapKV{data: make(map[string]mapEntry), now: time.Now}
}

func (m *MapKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MapKV) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	e := mapEntry{value: s}
	if expiration > 0 {
		e.expires = m.now().Add(expiration)
	}
	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MapKV) Delete(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}
