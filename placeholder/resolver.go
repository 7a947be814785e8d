package placeholder

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ByLCY/invoicestudio/binding"
	"github.com/ByLCY/invoicestudio/element"
)

// DefaultDateLayout 对应 en-US 的 toLocaleDateString 输出（例如 3/14/2025）。
const DefaultDateLayout = "1/2/2006"

type format int

const (
	formatPlain format = iota
	formatDate
	formatCurrency
	formatQuantity
)

type field struct {
	paths  []string
	format format
}

// vocabulary 是固定的占位符查找表：每个 id 按顺序尝试若干字段路径。
var vocabulary = map[string]field{
	"ph-invoice-no":       {[]string{"invoice_number", "invoiceNumber", "number"}, formatPlain},
	"ph-issue-date":       {[]string{"issue_date", "invoice_date", "date", "created_at"}, formatDate},
	"ph-due-date":         {[]string{"due_date", "dueDate"}, formatDate},
	"ph-company-name":     {[]string{"company_name", "company.name"}, formatPlain},
	"ph-company-address":  {[]string{"company_address", "company.address"}, formatPlain},
	"ph-company-phone":    {[]string{"company_phone", "company.phone"}, formatPlain},
	"ph-customer-name":    {[]string{"customer_name", "client_name", "client.name", "customer.name"}, formatPlain},
	"ph-customer-address": {[]string{"customer_address", "client_address", "client.address", "customer.address"}, formatPlain},
	"ph-customer-phone":   {[]string{"customer_phone", "client_phone", "client.phone", "customer.phone"}, formatPlain},
	"ph-item-description": {[]string{"items[0].description", "line_items[0].description"}, formatPlain},
	"ph-item-quantity":    {[]string{"items[0].quantity", "line_items[0].quantity"}, formatQuantity},
	"ph-item-unit-price":  {[]string{"items[0].unit_price", "items[0].price", "line_items[0].unit_price"}, formatCurrency},
	"ph-item-amount":      {[]string{"items[0].amount", "line_items[0].amount"}, formatCurrency},
	"ph-subtotal":         {[]string{"subtotal", "sub_total"}, formatCurrency},
	"ph-total":            {[]string{"total", "grand_total", "total_amount"}, formatCurrency},
}

// CustomerIDs 是依赖客户资料的占位符，发票记录缺少这些字段时可以从客户记录补齐。
var CustomerIDs = []string{"ph-customer-name", "ph-customer-address", "ph-customer-phone"}

// Known 报告 id 是否在查找表中。
func Known(id string) bool {
	_, ok := vocabulary[id]
	return ok
}

// IDs 返回全部占位符 id，按字典序排列。
func IDs() []string {
	out := make([]string, 0, len(vocabulary))
	for id := range vocabulary {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Options 控制格式化细节。
type Options struct {
	DateLayout string // 默认 DefaultDateLayout
	Currency   string // 货币符号或代码；记录中的 currency 字段优先
}

// Resolver 把发票数据代入带 placeholderId 的文本元素。
type Resolver struct {
	opts Options
}

// NewResolver 创建解析器。
func NewResolver(opts Options) *Resolver {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}
	return &Resolver{opts: opts}
}

// Resolve 使用默认选项解析。
func Resolve(elements []element.Element, rec map[string]any) []element.Element {
	return NewResolver(Options{}).Resolve(elements, rec)
}

// Resolve 返回新的元素切片。只有带已知 placeholderId 的文本元素会被复制并改写，
// 其余元素原样放入结果；输入切片与元素都不会被修改。
func (r *Resolver) Resolve(elements []element.Element, rec map[string]any) []element.Element {
	out := make([]element.Element, len(elements))
	for i, el := range elements {
		id, ok := el.Placeholder()
		if !ok {
			out[i] = el
			continue
		}
		text, ok := r.Value(id, rec)
		if !ok {
			out[i] = el
			continue
		}
		cp := el
		cp.Props = el.Props.Clone()
		cp.Props.SetStr(element.KeyText, text)
		out[i] = cp
	}
	return out
}

// Value 计算单个占位符的文本。未知 id 返回 ok=false；字段缺失返回空串。
func (r *Resolver) Value(id string, rec map[string]any) (string, bool) {
	f, ok := vocabulary[id]
	if !ok {
		return "", false
	}
	raw, found := lookupFirst(rec, f.paths)
	if !found {
		return "", true
	}
	switch f.format {
	case formatDate:
		return r.formatDate(raw), true
	case formatCurrency:
		s := formatFixed(raw)
		if s == "" {
			return "", true
		}
		return r.currencyPrefix(rec) + s, true
	case formatQuantity:
		return formatNumber(raw), true
	default:
		return scalarString(raw), true
	}
}

func lookupFirst(rec map[string]any, paths []string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	for _, path := range paths {
		if v, ok := binding.Lookup(rec, path); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r *Resolver) formatDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format(r.opts.DateLayout)
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return ""
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(r.opts.DateLayout)
			}
		}
		return s
	default:
		return scalarString(v)
	}
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"INR": "₹",
}

func (r *Resolver) currencyPrefix(rec map[string]any) string {
	code := r.opts.Currency
	if v, ok := binding.Lookup(rec, "currency"); ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			code = strings.TrimSpace(s)
		}
	}
	if code == "" {
		return ""
	}
	if sym, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return sym
	}
	if len(code) == 3 && strings.ToUpper(code) == code {
		return code + " "
	}
	return code
}

// formatFixed 输出两位小数；无法解析的字符串原样返回。
func formatFixed(v any) string {
	f, ok := number(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			return strings.TrimSpace(s)
		}
		return ""
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatNumber(v any) string {
	f, ok := number(v)
	if !ok {
		return scalarString(v)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64, float32, int, int64, bool:
		return fmt.Sprint(s)
	default:
		return ""
	}
}
