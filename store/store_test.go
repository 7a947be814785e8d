package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/element"
)

type backend interface {
	TemplateBackend
	GetInvoice(ctx context.Context, id string) (Record, error)
	SaveInvoice(ctx context.Context, id string, rec Record) error
	GetClient(ctx context.Context, id string) (*Client, error)
	SaveClient(ctx context.Context, c *Client) error
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "studio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]backend{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func sample() *document.Template {
	tpl := document.New("Invoice A")
	tpl.Elements = document.MustElements(element.New(element.TypeRect, "", 1, 2))
	return tpl
}

func TestSaveEmptyNameNotPersisted(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		tpl := document.New("")
		tpl.ID = "tpl-1"
		err := s.SaveTemplate(ctx, tpl)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, document.ErrValidation), name)

		_, err = s.GetTemplate(ctx, "tpl-1")
		assert.True(t, errors.Is(err, ErrNotFound), name)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		tpl := sample()
		require.NoError(t, s.SaveTemplate(ctx, tpl), name)
		require.NotEmpty(t, tpl.ID, name)

		got, err := s.GetTemplate(ctx, tpl.ID)
		require.NoError(t, err, name)
		assert.Equal(t, tpl, got, name)

		tpl.Name = "Invoice B"
		require.NoError(t, s.SaveTemplate(ctx, tpl), name)
		list, err := s.ListTemplates(ctx)
		require.NoError(t, err, name)
		require.Len(t, list, 1, name)
		assert.Equal(t, "Invoice B", list[0].Name, name)
	}
}

func TestInvoicesAndClients(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		_, err := s.GetInvoice(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound), name)
		_, err = s.GetClient(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound), name)

		c := &Client{Name: "ACME", Address: "1 Road", Phone: "555"}
		require.NoError(t, s.SaveClient(ctx, c), name)
		require.NoError(t, s.SaveInvoice(ctx, "inv-1", Record{
			"id":             "inv-1",
			"invoice_number": "INV-001",
			"client_id":      c.ID,
			"total":          12.5,
		}), name)

		rec, err := s.GetInvoice(ctx, "inv-1")
		require.NoError(t, err, name)
		assert.Equal(t, "INV-001", rec["invoice_number"], name)
		assert.Equal(t, 12.5, rec["total"], name)

		got, err := s.GetClient(ctx, c.ID)
		require.NoError(t, err, name)
		assert.Equal(t, c, got, name)
	}
}

type countingBackend struct {
	TemplateBackend
	gets int
}

func (c *countingBackend) GetTemplate(ctx context.Context, id string) (*document.Template, error) {
	c.gets++
	return c.TemplateBackend.GetTemplate(ctx, id)
}

func TestCacheReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	tpl := sample()
	require.NoError(t, mem.SaveTemplate(ctx, tpl))

	counter := &countingBackend{TemplateBackend: mem}
	cache := NewCache(counter, NewMapKV(), time.Minute)

	first, err := cache.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	second, err := cache.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, counter.gets)

	tpl.Name = "Renamed"
	require.NoError(t, cache.SaveTemplate(ctx, tpl))
	third, err := cache.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", third.Name)
	assert.Equal(t, 2, counter.gets)

	_, err = cache.GetTemplate(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = cache.SaveTemplate(ctx, document.New(" "))
	assert.True(t, errors.Is(err, document.ErrValidation))
}

func TestMapKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMapKV()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", "v", time.Second))
	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(2 * time.Second)
	_, ok, _ = kv.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "a", []byte("b"), 0))
	n, err := kv.Delete(ctx, "a", "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisKV(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST 未设置")
	}
	port, _ := strconv.Atoi(os.Getenv("REDIS_PORT"))
	if port == 0 {
		port = 6379
	}
	ctx := context.Background()
	r := NewRedis(&RedisConf{Host: host, Port: port})
	defer r.Close()
	require.NoError(t, r.Ping(ctx))

	key := "invoicestudio:test:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	require.NoError(t, r.Set(ctx, key, "x", time.Minute))
	v, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	n, err := r.Delete(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
