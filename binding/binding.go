// Package binding 在 map/slice 组成的松散数据（例如发票记录）中按路径取值。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path} 替换为 data 中的值；取不到值时保留原文。
func Interpolate(text string, data any) string {
	if data == nil || !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if val, ok := Lookup(data, path); ok && val != nil {
			return fmt.Sprint(val)
		}
		return match
	})
}

// step 是路径中的一步：字段名或数组下标。
type step struct {
	key   string
	index int
}

func (s step) isIndex() bool { return s.key == "" }

// parsePath 把 "items[0].unit_price" 拆成 items、[0]、unit_price 三步。
func parsePath(path string) ([]step, bool) {
	var steps []step
	for _, part := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(part, "[")
		if name == "" && rest == "" {
			return nil, false
		}
		if name != "" {
			steps = append(steps, step{key: name})
		}
		if rest == "" {
			continue
		}
		for _, idx := range strings.Split("["+rest, "[")[1:] {
			n, err := strconv.Atoi(strings.TrimSuffix(idx, "]"))
			if err != nil || !strings.HasSuffix(idx, "]") {
				return nil, false
			}
			steps = append(steps, step{index: n})
		}
	}
	return steps, len(steps) > 0
}

// Lookup 按 "a.b[0].c" 形式的路径取值。路径无效或任意一步不存在时返回 ok=false。
func Lookup(data any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}
	steps, ok := parsePath(strings.TrimSpace(path))
	if !ok {
		return nil, false
	}
	cur := data
	for _, s := range steps {
		if s.isIndex() {
			cur, ok = index(cur, s.index)
		} else {
			cur, ok = field(cur, s.key)
		}
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func field(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out, ok := m[key]
		return out, ok
	case map[string]string:
		out, ok := m[key]
		return out, ok
	}
	return nil, false
}

func index(v any, i int) (any, bool) {
	switch s := v.(type) {
	case []any:
		if i >= 0 && i < len(s) {
			return s[i], true
		}
	case []map[string]any:
		if i >= 0 && i < len(s) {
			return s[i], true
		}
	}
	return nil, false
}
