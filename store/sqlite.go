package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ByLCY/invoicestudio/document"
)

//go:embed schema.sql
var schema string

// SQLite 把模板文档与发票记录以 JSON 文本存入 SQLite。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开（必要时创建）数据库文件并执行建表。
func OpenSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("执行建表失败: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close 关闭连接。
func (s *SQLite) Close() error { return s.db.Close() }

// GetTemplate 读取并解码模板文档。
func (s *SQLite) GetTemplate(ctx context.Context, id string) (*document.Template, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM templates WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("模板 %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询模板 %s 失败: %w", id, err)
	}
	t, err := document.Unmarshal([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("模板 %s: %w", id, err)
	}
	t.ID = id
	return t, nil
}

// SaveTemplate 校验后插入或覆盖；校验失败时不写库。
func (s *SQLite) SaveTemplate(ctx context.Context, t *document.Template) error {
	if err := document.Validate(t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	data, err := document.Marshal(t)
	if err != nil {
		return fmt.Errorf("编码模板失败: %w", err)
	}
	kind := t.Kind
	if kind == "" {
		kind = document.KindCustom
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO templates (id, name, kind, document, updated_at)
        VALUES (?, ?, ?, ?, datetime('now'))
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            kind = excluded.kind,
            document = excluded.document,
            updated_at = excluded.updated_at
    `, t.ID, t.Name, string(kind), string(data))
	if err != nil {
		return fmt.Errorf("保存模板失败: %w", err)
	}
	return nil
}

// ListTemplates 返回全部模板，按名称排序。
func (s *SQLite) ListTemplates(ctx context.Context) ([]*document.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM templates`)
	if err != nil {
		return nil, fmt.Errorf("查询模板列表失败: %w", err)
	}
	defer rows.Close()

	var out []*document.Template
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		t, err := document.Unmarshal([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("模板 %s: %w", id, err)
		}
		t.ID = id
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortTemplates(out)
	return out, nil
}

// GetInvoice 读取发票记录，并补上 id 字段。
func (s *SQLite) GetInvoice(ctx context.Context, id string) (Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM invoices WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("发票 %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询发票 %s 失败: %w", id, err)
	}
	rec := Record{}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("发票 %s 数据损坏: %w", id, err)
	}
	if _, ok := rec["id"]; !ok {
		rec["id"] = id
	}
	return rec, nil
}

// SaveInvoice 插入或覆盖发票记录。
func (s *SQLite) SaveInvoice(ctx context.Context, id string, rec Record) error {
	if id == "" {
		return fmt.Errorf("发票 id 不能为空")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("编码发票失败: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO invoices (id, data) VALUES (?, ?)
        ON CONFLICT(id) DO UPDATE SET data = excluded.data
    `, id, string(data))
	if err != nil {
		return fmt.Errorf("保存发票失败: %w", err)
	}
	return nil
}

// GetClient 读取客户资料。
func (s *SQLite) GetClient(ctx context.Context, id string) (*Client, error) {
	var c Client
	err := s.db.QueryRowContext(ctx, `SELECT id, name, address, phone FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Address, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("客户 %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询客户 %s 失败: %w", id, err)
	}
	return &c, nil
}

// SaveClient 插入或覆盖客户资料。
func (s *SQLite) SaveClient(ctx context.Context, c *Client) error {
	if c == nil {
		return fmt.Errorf("客户为空")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO clients (id, name, address, phone) VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET name = excluded.name, address = excluded.address, phone = excluded.phone
    `, c.ID, c.Name, c.Address, c.Phone)
	if err != nil {
		return fmt.Errorf("保存客户失败: %w", err)
	}
	return nil
}
