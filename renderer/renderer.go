package renderer

import (
	"strings"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/element"
)

// Surface 是已绘制、尚未栅格化的画布。Size 返回布局单位下的宽高。
type Surface interface {
	Size() (width, height float64)
}

// Painter 把元素列表绘制为 Surface。元素顺序即绘制顺序，未知类型跳过。
type Painter interface {
	Surface(elements []element.Element, page document.Page, opts SurfaceOptions) (Surface, error)
}

// Rasterizer 将 Surface 的一个区域栅格化为 PNG。
type Rasterizer interface {
	RenderToBitmap(s Surface, region Region) ([]byte, error)
}

// Embedder 把位图放入多页文档并输出字节。页面尺寸单位为毫米。
type Embedder interface {
	CreatePage(width, height float64) int
	DrawImage(page int, png []byte, at Rect) error
	Save() ([]byte, error)
}

// Region 是待栅格化的区域；PixelRatio 为每个布局单位对应的设备像素数。
type Region struct {
	X, Y          float64
	Width, Height float64
	PixelRatio    float64
}

// Rect 是页面上的放置矩形。
type Rect struct {
	X, Y, W, H float64
}

// DocumentMeta 写入 PDF 文档信息。
type DocumentMeta struct {
	Title    string
	Subject  string
	Author   string
	Creator  string
	Keywords []string
}

// SurfaceOptions 是一次绘制的显式配置，不修改任何共享状态。
type SurfaceOptions struct {
	Theme Theme

	// 编辑器预览用的叠加层，导出时留空。
	GridLines []element.Segment
	Selected  string
}

// Theme 描述主题色与颜色替换。
type Theme struct {
	Background string            // 页面底色，默认白色
	Text       string            // 文本元素未设置 fill 时的颜色
	Colors     map[string]string // 颜色替换表，键不区分大小写
	FontFamily string            // 文本元素未设置 fontFamily 时使用
}

// DefaultTheme 是导出时使用的主题：白底深色文字。
func DefaultTheme() Theme {
	return Theme{Background: "#ffffff", Text: "#111827", FontFamily: "sans"}
}

// Color 返回经替换表映射后的颜色。
func (t Theme) Color(c string) string {
	if len(t.Colors) == 0 || c == "" {
		return c
	}
	if to, ok := t.Colors[c]; ok {
		return to
	}
	lc := strings.ToLower(c)
	for from, to := range t.Colors {
		if strings.ToLower(from) == lc {
			return to
		}
	}
	return c
}
