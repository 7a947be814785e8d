package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ByLCY/invoicestudio/document"
)

// Memory 是进程内存储，保存的模板都是副本。
type Memory struct {
	mu        sync.RWMutex
	templates map[string]*document.Template
	invoices  map[string]Record
	clients   map[string]*Client
}

// NewMemory 创建空存储。
func NewMemory() *Memory {
	return &Memory{
		templates: make(map[string]*document.Template),
		invoices:  make(map[string]Record),
		clients:   make(map[string]*Client),
	}
}

// GetTemplate 按 id 读取模板副本。
func (m *Memory) GetTemplate(_ context.Context, id string) (*document.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, fmt.Errorf("模板 %s: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// SaveTemplate 校验后保存；id 为空时分配新 UUID 并回写到 t。
func (m *Memory) SaveTemplate(_ context.Context, t *document.Template) error {
	if err := document.Validate(t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.mu.Lock()
	m.templates[t.ID] = t.Clone()
	m.mu.Unlock()
	return nil
}

// ListTemplates 按名称排序返回全部模板。
func (m *Memory) ListTemplates(_ context.Context) ([]*document.Template, error) {
	m.mu.RLock()
	out := make([]*document.Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t.Clone())
	}
	m.mu.RUnlock()
	sortTemplates(out)
	return out, nil
}

// GetInvoice 读取发票记录副本。
func (m *Memory) GetInvoice(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("发票 %s: %w", id, ErrNotFound)
	}
	return rec.Clone(), nil
}

// SaveInvoice 保存发票记录。
func (m *Memory) SaveInvoice(_ context.Context, id string, rec Record) error {
	if id == "" {
		return fmt.Errorf("发票 id 不能为空")
	}
	m.mu.Lock()
	m.invoices[id] = rec.Clone()
	m.mu.Unlock()
	return nil
}

// GetClient 读取客户资料。
func (m *Memory) GetClient(_ context.Context, id string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("客户 %s: %w", id, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// SaveClient 保存客户资料；id 为空时分配新 UUID。
func (m *Memory) SaveClient(_ context.Context, c *Client) error {
	if c == nil {
		return fmt.Errorf("客户为空")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	m.mu.Lock()
	m.clients[c.ID] = &cp
	m.mu.Unlock()
	return nil
}
