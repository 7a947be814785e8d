// Package store 提供模板、发票与客户资料的持久化实现。
package store

import (
	"errors"
	"sort"

	"github.com/ByLCY/invoicestudio/document"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("not found")

// Record 是发票数据袋，键名沿用数据库列名（invoice_number、issue_date、client_id ...）。
type Record map[string]any

// Clone 浅拷贝顶层键，合并客户字段时使用。
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Client 是客户资料。
type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func sortTemplates(list []*document.Template) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}
