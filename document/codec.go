package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed 表示输入不是合法的模板文档。
var ErrMalformed = errors.New("malformed template document")

// MalformedError 携带具体原因。
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("模板文档格式错误: %s: %v", e.Reason, e.Err)
	}
	return "模板文档格式错误: " + e.Reason
}

func (e *MalformedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformed, e.Err}
	}
	return []error{ErrMalformed}
}

type wireTemplate struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kind        Kind            `json:"kind,omitempty"`
	Page        *Page           `json:"page,omitempty"`
	Elements    json.RawMessage `json:"elements"`
}

// Marshal 把模板编码为 JSON。
func Marshal(t *Template) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("模板为空")
	}
	return json.Marshal(t)
}

// MarshalIndent 输出带缩进的 JSON，供 CLI 导出使用。
func MarshalIndent(t *Template) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("模板为空")
	}
	return json.MarshalIndent(t, "", "  ")
}

// Unmarshal 解析模板文档。elements 缺失或不是数组时返回 ErrMalformed；
// name 与 description 缺失时为空串，page 缺失时取默认 A4。
func Unmarshal(data []byte) (*Template, error) {
	var w wireTemplate
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &MalformedError{Reason: "无法解析 JSON", Err: err}
	}
	raw := bytes.TrimSpace(w.Elements)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, &MalformedError{Reason: "缺少 elements"}
	}
	if raw[0] != '[' {
		return nil, &MalformedError{Reason: "elements 必须是数组"}
	}
	t := &Template{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Kind:        w.Kind,
		Page:        DefaultPage(),
	}
	if w.Page != nil {
		t.Page = *w.Page
	}
	if err := json.Unmarshal(raw, &t.Elements); err != nil {
		return nil, &MalformedError{Reason: "elements 无法解析", Err: err}
	}
	return t, nil
}
