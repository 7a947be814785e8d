package document

import (
	"errors"
	"fmt"
	"strings"
)

// 默认页面为 A4 在 96 DPI 下的像素尺寸。
const (
	DefaultPageWidth  = 794.0
	DefaultPageHeight = 1123.0
)

// Kind 标记模板来源。自定义模板走元素重放，其余为内置预设。
type Kind string

const (
	KindCustom  Kind = "custom"
	KindClassic Kind = "classic"
	KindModern  Kind = "modern"
	KindMinimal Kind = "minimal"
)

// Known 报告 k 是否为合法取值；空值视为 custom。
func (k Kind) Known() bool {
	switch k {
	case "", KindCustom, KindClassic, KindModern, KindMinimal:
		return true
	default:
		return false
	}
}

// Page 是画布尺寸（布局单位）。
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultPage 返回 A4 页面。
func DefaultPage() Page { return Page{Width: DefaultPageWidth, Height: DefaultPageHeight} }

// Extend 把页面加高到至少 h。
func (p Page) Extend(h float64) Page {
	if h > p.Height {
		p.Height = h
	}
	return p
}

// Template 是可持久化的模板文档。
type Template struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Kind        Kind     `json:"kind,omitempty"`
	Page        Page     `json:"page"`
	Elements    Elements `json:"elements"`
}

// New 创建一个空的自定义模板。
func New(name string) *Template {
	return &Template{Name: name, Kind: KindCustom, Page: DefaultPage()}
}

// Clone 深拷贝模板，编辑器检出工作副本时使用。
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Elements = t.Elements.Clone()
	return &cp
}

// ErrValidation 表示文档无法保存。
var ErrValidation = errors.New("template validation failed")

// ValidationError 指出出错的字段。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("模板字段 %s 无效: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate 在保存前检查模板。元素几何不做校验。
func Validate(t *Template) error {
	if t == nil {
		return &ValidationError{Field: "template", Reason: "为空"}
	}
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Field: "name", Reason: "不能为空"}
	}
	if !t.Kind.Known() {
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("未知类型 %q", t.Kind)}
	}
	if t.Page.Width <= 0 || t.Page.Height <= 0 {
		return &ValidationError{Field: "page", Reason: "尺寸必须为正数"}
	}
	return nil
}

// Placeholders 返回文档中出现的 placeholderId（按元素顺序，去重）。
func (t *Template) Placeholders() []string {
	seen := map[string]bool{}
	var out []string
	for _, el := range t.Elements.Slice() {
		if id, ok := el.Placeholder(); ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
