package document

import (
	"encoding/json"
	"fmt"

	"cogentcore.org/core/base/ordmap"

	"github.com/ByLCY/invoicestudio/element"
)

// Elements 是按插入顺序排列、以元素 id 为键的集合。顺序即绘制顺序（后者在上）。
// 零值可直接使用。
type Elements struct {
	m *ordmap.Map[string, element.Element]
}

// NewElements 按顺序构造集合；id 为空或重复时报错。
func NewElements(els ...element.Element) (Elements, error) {
	var out Elements
	for _, el := range els {
		if err := out.Add(el); err != nil {
			return Elements{}, err
		}
	}
	return out, nil
}

// MustElements 与 NewElements 相同，出错时 panic，用于静态预设。
func MustElements(els ...element.Element) Elements {
	out, err := NewElements(els...)
	if err != nil {
		panic(err)
	}
	return out
}

// Len 返回元素数量。
func (s *Elements) Len() int { return s.m.Len() }

// Add 追加到末尾。ordmap 遇到重复键会覆盖，这里改为报错。
func (s *Elements) Add(el element.Element) error {
	if el.ID == "" {
		return fmt.Errorf("元素缺少 id")
	}
	if s.m == nil {
		s.m = ordmap.New[string, element.Element]()
	}
	if _, dup := s.m.IndexByKeyTry(el.ID); dup {
		return fmt.Errorf("元素 id 重复: %s", el.ID)
	}
	s.m.Add(el.ID, el)
	return nil
}

// Get 按 id 查找。
func (s *Elements) Get(id string) (element.Element, bool) {
	if s.m == nil {
		return element.Element{}, false
	}
	return s.m.ValueByKeyTry(id)
}

// Index 返回 id 的位置，不存在时为 -1。
func (s *Elements) Index(id string) int {
	if s.m == nil {
		return -1
	}
	return s.m.IndexByKey(id)
}

// At 返回第 i 个元素。
func (s *Elements) At(i int) element.Element { return s.m.ValueByIndex(i) }

// Replace 原位替换 id 对应的元素，顺序与其他元素保持不变。
// 新元素的 id 会被强制为 id。
func (s *Elements) Replace(id string, el element.Element) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	el.ID = id
	s.m.ReplaceIndex(i, id, el)
	return true
}

// Slice 返回元素的浅拷贝切片，调用方可以安全地重排或截断。
func (s *Elements) Slice() []element.Element {
	if s.m == nil {
		return []element.Element{}
	}
	return s.m.Values()
}

// IDs 按顺序返回全部 id。
func (s *Elements) IDs() []string {
	if s.m == nil {
		return []string{}
	}
	return s.m.Keys()
}

// Clone 深拷贝集合。
func (s *Elements) Clone() Elements {
	if s.Len() == 0 {
		return Elements{}
	}
	out := Elements{m: ordmap.New[string, element.Element]()}
	for _, kv := range s.m.Order {
		out.m.Add(kv.Key, kv.Value.Clone())
	}
	return out
}

// MarshalJSON 输出为数组。
func (s Elements) MarshalJSON() ([]byte, error) {
	if s.m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.m.Values())
}

// UnmarshalJSON 从数组读取。
func (s *Elements) UnmarshalJSON(data []byte) error {
	var items []element.Element
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out, err := NewElements(items...)
	if err != nil {
		return err
	}
	*s = out
	return nil
}
