package element

import (
	"math"
	"strings"
	"unicode/utf8"
)

// TextLineHeight 是文本行高相对字号的倍数，编辑器估算与渲染器排版一致。
const TextLineHeight = 1.2

// Box 是元素局部坐标系（相对锚点、未旋转、未缩放）下的包围盒。
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b Box) W() float64 { return b.MaxX - b.MinX }
func (b Box) H() float64 { return b.MaxY - b.MinY }

// Center 返回包围盒中心。
func (b Box) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Contains 判断局部坐标点是否落在包围盒内（含边界，附加 pad 容差）。
func (b Box) Contains(x, y, pad float64) bool {
	return x >= b.MinX-pad && x <= b.MaxX+pad && y >= b.MinY-pad && y <= b.MaxY+pad
}

// Bounds 返回元素的局部包围盒。未知类型返回 ok=false。
func Bounds(e Element) (Box, bool) {
	p := e.Props
	switch e.Type {
	case TypeRect, TypeRoundedRect:
		return Box{0, 0, p.Num(KeyWidth), p.Num(KeyHeight)}, true
	case TypeCircle, TypeTriangle, TypePentagon:
		r := p.Num(KeyRadius)
		return Box{-r, -r, r, r}, true
	case TypeStar:
		r := math.Max(p.Num(KeyOuterRadius), p.Num(KeyInnerRadius))
		return Box{-r, -r, r, r}, true
	case TypeLine, TypeDottedLine:
		points := p.Points()
		if len(points) < 2 {
			return Box{}, true
		}
		b := Box{math.MaxFloat64, math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
		for i := 0; i+1 < len(points); i += 2 {
			b.MinX = math.Min(b.MinX, points[i])
			b.MaxX = math.Max(b.MaxX, points[i])
			b.MinY = math.Min(b.MinY, points[i+1])
			b.MaxY = math.Max(b.MaxY, points[i+1])
		}
		return b, true
	case TypeText:
		fontSize := p.NumOr(KeyFontSize, 14)
		width := p.Num(KeyWidth)
		if width <= 0 {
			width = EstimateTextWidth(p.Str(KeyText), fontSize)
		}
		lines := EstimateLineCount(p.Str(KeyText), fontSize, width)
		return Box{0, 0, width, float64(lines) * fontSize * TextLineHeight}, true
	default:
		return Box{}, false
	}
}

// ToPage 把局部坐标转换为页面坐标：先绕锚点旋转，再平移到锚点。
func ToPage(e Element, lx, ly float64) (float64, float64) {
	x, y := e.Position()
	rx, ry := rotate(lx, ly, e.Rotation())
	return x + rx, y + ry
}

// FromPage 把页面坐标转换回元素局部坐标。
func FromPage(e Element, px, py float64) (float64, float64) {
	x, y := e.Position()
	return rotate(px-x, py-y, -e.Rotation())
}

// Rotate 以原点为中心按角度（度，y 轴向下时为顺时针）旋转向量。
func Rotate(x, y, deg float64) (float64, float64) { return rotate(x, y, deg) }

func rotate(x, y, deg float64) (float64, float64) {
	if deg == 0 {
		return x, y
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return x*cos - y*sin, x*sin + y*cos
}

// EstimateTextWidth 粗略估算单行文本宽度，用于未指定 width 的文本。
func EstimateTextWidth(content string, fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = 14
	}
	maxChars := 0
	for _, line := range strings.Split(content, "\n") {
		if n := utf8.RuneCountInString(line); n > maxChars {
			maxChars = n
		}
	}
	return fontSize * 0.55 * float64(maxChars+1)
}

// EstimateLineCount 估算文本在给定宽度内折行后的行数（至少 1 行）。
func EstimateLineCount(content string, fontSize, width float64) int {
	if fontSize <= 0 {
		fontSize = 14
	}
	charWidth := fontSize * 0.55
	total := 0
	for _, line := range strings.Split(content, "\n") {
		n := utf8.RuneCountInString(line)
		if width <= 0 || n == 0 {
			total++
			continue
		}
		total += int(math.Ceil(float64(n) * charWidth / width))
	}
	if total < 1 {
		total = 1
	}
	return total
}

// Segment 是页面坐标下的线段，用于网格等辅助线。
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Corners 返回元素包围盒四角的页面坐标（顺时针，从左上开始）。
func Corners(e Element) ([4][2]float64, bool) {
	b, ok := Bounds(e)
	if !ok {
		return [4][2]float64{}, false
	}
	var out [4][2]float64
	for i, c := range [4][2]float64{{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MaxX, b.MaxY}, {b.MinX, b.MaxY}} {
		out[i][0], out[i][1] = ToPage(e, c[0], c[1])
	}
	return out, true
}
