package editor

import (
	"math"

	"github.com/ByLCY/invoicestudio/element"
)

// HandleKind 标识选中框上的控制点。
type HandleKind string

const (
	TopLeft      HandleKind = "top-left"
	TopCenter    HandleKind = "top-center"
	TopRight     HandleKind = "top-right"
	MiddleRight  HandleKind = "middle-right"
	BottomRight  HandleKind = "bottom-right"
	BottomCenter HandleKind = "bottom-center"
	BottomLeft   HandleKind = "bottom-left"
	MiddleLeft   HandleKind = "middle-left"
	Rotater      HandleKind = "rotater"
)

// 控制点命中半径与旋转柄偏移，单位为屏幕像素。
const (
	HandleRadius  = 6.0
	RotaterOffset = 30.0
)

var (
	cornerHandles = []HandleKind{TopLeft, TopRight, BottomRight, BottomLeft}
	allHandles    = []HandleKind{TopLeft, TopCenter, TopRight, MiddleRight, BottomRight, BottomCenter, BottomLeft, MiddleLeft}
)

// Handle 是页面坐标下的一个控制点。
type Handle struct {
	Kind HandleKind `json:"kind"`
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
}

// handleKinds 返回该类型可用的缩放控制点（不含旋转柄）。
func handleKinds(t element.Type) []HandleKind {
	if t == element.TypeText {
		return allHandles
	}
	return cornerHandles
}

// keepRatio 报告该类型是否锁定宽高比。
func keepRatio(t element.Type) bool { return t.Centered() }

// local 返回控制点在元素局部坐标系中的位置。
func local(b element.Box, k HandleKind, zoom float64) (float64, float64) {
	cx, cy := b.Center()
	switch k {
	case TopLeft:
		return b.MinX, b.MinY
	case TopCenter:
		return cx, b.MinY
	case TopRight:
		return b.MaxX, b.MinY
	case MiddleRight:
		return b.MaxX, cy
	case BottomRight:
		return b.MaxX, b.MaxY
	case BottomCenter:
		return cx, b.MaxY
	case BottomLeft:
		return b.MinX, b.MaxY
	case MiddleLeft:
		return b.MinX, cy
	case Rotater:
		return cx, b.MinY - RotaterOffset/zoom
	}
	return cx, cy
}

// opposite 返回缩放时保持不动的控制点。
func opposite(k HandleKind) HandleKind {
	switch k {
	case TopLeft:
		return BottomRight
	case TopCenter:
		return BottomCenter
	case TopRight:
		return BottomLeft
	case MiddleRight:
		return MiddleLeft
	case BottomRight:
		return TopLeft
	case BottomCenter:
		return TopCenter
	case BottomLeft:
		return TopRight
	case MiddleLeft:
		return MiddleRight
	}
	return k
}

// axes 报告控制点影响的缩放轴。
func axes(k HandleKind) (x, y bool) {
	switch k {
	case TopCenter, BottomCenter:
		return false, true
	case MiddleLeft, MiddleRight:
		return true, false
	default:
		return true, true
	}
}

// handlesFor 计算元素全部控制点的页面坐标。
func handlesFor(el element.Element, zoom float64) []Handle {
	b, ok := element.Bounds(el)
	if !ok {
		return nil
	}
	kinds := append(append([]HandleKind{}, handleKinds(el.Type)...), Rotater)
	out := make([]Handle, 0, len(kinds))
	for _, k := range kinds {
		lx, ly := local(b, k, zoom)
		x, y := element.ToPage(el, lx, ly)
		out = append(out, Handle{Kind: k, X: x, Y: y})
	}
	return out
}

// transformFor 根据控制点拖拽计算变换。ok=false 表示该变换会把包围盒缩小到下限以下，应被拒绝。
func transformFor(origin element.Element, k HandleKind, px, py, zoom float64) (element.Transform, bool) {
	b, _ := element.Bounds(origin)

	rot := origin.Rotation()

	if k == Rotater {
		cx, cy := b.Center()
		pcx, pcy := element.ToPage(origin, cx, cy)
		angle := math.Atan2(py-pcy, px-pcx)*180/math.Pi + 90
		angle = normalizeAngle(angle)
		// 绕中心旋转：锚点相对中心的偏移随新角度旋转
		ox, oy := element.Rotate(-cx, -cy, angle)
		return element.Transform{ScaleX: 1, ScaleY: 1, Rotation: angle, X: pcx + ox, Y: pcy + oy}, true
	}

	hx, hy := local(b, k, zoom)
	fx, fy := local(b, opposite(k), zoom)
	lx, ly := element.FromPage(origin, px, py)

	sx, sy := 1.0, 1.0
	useX, useY := axes(k)
	if useX && hx != fx {
		sx = (lx - fx) / (hx - fx)
	}
	if useY && hy != fy {
		sy = (ly - fy) / (hy - fy)
	}
	if keepRatio(origin.Type) {
		sy = sx
	}

	if sx <= 0 || sy <= 0 || math.IsNaN(sx) || math.IsNaN(sy) {
		return element.Transform{}, false
	}
	if shrinksBelow(b.W(), sx) || shrinksBelow(b.H(), sy) {
		return element.Transform{}, false
	}

	// 固定点在页面上的位置保持不变
	pfx, pfy := element.ToPage(origin, fx, fy)
	rx, ry := element.Rotate(fx*sx, fy*sy, rot)
	return element.Transform{ScaleX: sx, ScaleY: sy, Rotation: rot, X: pfx - rx, Y: pfy - ry}, true
}

// shrinksBelow 报告尺寸 size 按 s 缩放后是否被缩小到下限以下。
// 本来就不足下限的尺寸（例如水平线的高度）只要不继续缩小就允许。
func shrinksBelow(size, s float64) bool {
	next := size * s
	return next < element.MinShapeSize && next < size
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	}
	if a <= -180 {
		a += 360
	}
	return a
}
