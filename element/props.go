package element

import (
	"math"
	"strconv"
)

// Props 是元素属性袋。值只保存 JSON 原生类型（float64/string/bool/[]any/map[string]any），
// 这样序列化往返后可以逐值比较。
type Props map[string]any

// Float 读取数值属性，兼容整数与数字字符串。
func (p Props) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Num 读取数值属性，缺失或无法解析时返回 0。
func (p Props) Num(key string) float64 {
	f, _ := p.Float(key)
	return f
}

// NumOr 读取数值属性，缺失时返回 def。
func (p Props) NumOr(key string, def float64) float64 {
	if f, ok := p.Float(key); ok {
		return f
	}
	return def
}

// Str 读取字符串属性。
func (p Props) Str(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Has 报告属性是否存在。
func (p Props) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Points 读取扁平坐标序列 [x0, y0, x1, y1, ...]。
func (p Props) Points() []float64 {
	switch v := p[KeyPoints].(type) {
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			f, _ := toFloat(item)
			out = append(out, f)
		}
		return out
	default:
		return nil
	}
}

// SetFloat 写入数值属性。
func (p Props) SetFloat(key string, v float64) { p[key] = v }

// SetStr 写入字符串属性。
func (p Props) SetStr(key, v string) { p[key] = v }

// SetPoints 以 []any 的形式写入坐标，与 JSON 解码结果保持同一形态。
func (p Props) SetPoints(points []float64) {
	out := make([]any, len(points))
	for i, f := range points {
		out[i] = f
	}
	p[KeyPoints] = out
}

// Clone 深拷贝属性袋，嵌套的切片与 map 也会复制。
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Normalize 把 Go 侧写入的 int/float32/[]float64 等转换为 JSON 原生形态。
func Normalize(p Props) Props {
	if p == nil {
		return Props{}
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = normalizeValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch c := v.(type) {
	case []any:
		out := make([]any, len(c))
		for i, item := range c {
			out[i] = cloneValue(item)
		}
		return out
	case []float64:
		out := make([]float64, len(c))
		copy(out, c)
		return out
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, item := range c {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func normalizeValue(v any) any {
	switch c := v.(type) {
	case int:
		return float64(c)
	case int32:
		return float64(c)
	case int64:
		return float64(c)
	case float32:
		return float64(c)
	case []float64:
		out := make([]any, len(c))
		for i, f := range c {
			out[i] = f
		}
		return out
	case []string:
		out := make([]any, len(c))
		for i, s := range c {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, item := range c {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, item := range c {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
