package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10oblique"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// Default 是渲染器在字体缺失时使用的内置字体名。
const Default = "Sans-Regular"

var builtin = map[string][]byte{
	"Sans-Regular":  lmsans10regular.TTF,
	"Sans-Bold":     lmsans10bold.TTF,
	"Sans-Italic":   lmsans10oblique.TTF,
	"Serif-Regular": lmroman10regular.TTF,
	"Serif-Bold":    lmroman10bold.TTF,
	"Serif-Italic":  lmroman10italic.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:Sans-Bold" 或直接 "Sans-Bold"。
func Load(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "embed:")
	data, ok := builtin[name]
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体", name)
	}
	return data, nil
}

// Names 列出全部内置字体名（已排序）。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Family 根据字体族（sans/serif）与样式（bold/italic）选择内置字体名。
func Family(family, style string) string {
	base := "Sans"
	if strings.EqualFold(strings.TrimSpace(family), "serif") {
		base = "Serif"
	}
	s := strings.ToLower(style)
	switch {
	case strings.Contains(s, "bold"):
		return base + "-Bold"
	case strings.Contains(s, "italic"), strings.Contains(s, "oblique"):
		return base + "-Italic"
	default:
		return base + "-Regular"
	}
}
