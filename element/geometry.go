package element

import "math"

// 尺寸下限（布局单位）。交互变换与模型层共用同一个 5 单位下限。
const (
	MinShapeSize = 5.0
	MinFontSize  = 8.0
	MinTextWidth = 20.0
)

// Transform 描述一次变换提交：缩放系数、绝对旋转角度以及变换后的锚点坐标。
type Transform struct {
	ScaleX   float64
	ScaleY   float64
	Rotation float64
	X        float64
	Y        float64
}

// ApplyTranslation 平移元素，只修改 x/y。未知类型原样返回。
func ApplyTranslation(e Element, dx, dy float64) Element {
	if !e.Type.Known() {
		return e
	}
	out := e.Clone()
	if out.Props == nil {
		out.Props = Props{}
	}
	out.Props.SetFloat(KeyX, e.Props.Num(KeyX)+dx)
	out.Props.SetFloat(KeyY, e.Props.Num(KeyY)+dy)
	return out
}

// ApplyTransform 按类型把缩放写入几何属性，旋转取绝对值，x/y 取变换结果。
// 结果经过下限钳制；未知类型原样返回。
func ApplyTransform(e Element, t Transform) Element {
	if !e.Type.Known() {
		return e
	}
	out := e.Clone()
	if out.Props == nil {
		out.Props = Props{}
	}
	p := out.Props
	switch e.Type {
	case TypeRect, TypeRoundedRect:
		p.SetFloat(KeyWidth, p.Num(KeyWidth)*t.ScaleX)
		p.SetFloat(KeyHeight, p.Num(KeyHeight)*t.ScaleY)
	case TypeCircle, TypeTriangle, TypePentagon:
		p.SetFloat(KeyRadius, p.Num(KeyRadius)*t.ScaleX)
	case TypeStar:
		p.SetFloat(KeyInnerRadius, p.Num(KeyInnerRadius)*t.ScaleX)
		p.SetFloat(KeyOuterRadius, p.Num(KeyOuterRadius)*t.ScaleX)
	case TypeLine, TypeDottedLine:
		points := p.Points()
		for i := range points {
			if i%2 == 0 {
				points[i] *= t.ScaleX
			} else {
				points[i] *= t.ScaleY
			}
		}
		p.SetPoints(points)
	case TypeText:
		// 自动宽度的文本以估算宽度为基准，与编辑器手柄使用的包围盒一致。
		b, _ := Bounds(e)
		p.SetFloat(KeyFontSize, p.NumOr(KeyFontSize, 14)*t.ScaleX)
		p.SetFloat(KeyWidth, b.W()*t.ScaleX)
	}
	p.SetFloat(KeyRotation, t.Rotation)
	p.SetFloat(KeyX, t.X)
	p.SetFloat(KeyY, t.Y)
	return Clamp(out)
}

// Clamp 把尺寸类属性钳制到下限。只处理已存在的键，不会凭空添加属性。
func Clamp(e Element) Element {
	if !e.Type.Known() || e.Props == nil {
		return e
	}
	p := e.Props
	floor := func(key string, min float64) {
		if v, ok := p.Float(key); (ok && (v < min || !finite(v))) || nonFinite(p[key]) {
			p.SetFloat(key, min)
		}
	}
	switch e.Type {
	case TypeRect, TypeRoundedRect:
		floor(KeyWidth, MinShapeSize)
		floor(KeyHeight, MinShapeSize)
	case TypeCircle, TypeTriangle, TypePentagon:
		floor(KeyRadius, MinShapeSize)
	case TypeStar:
		floor(KeyInnerRadius, MinShapeSize)
		floor(KeyOuterRadius, MinShapeSize)
	case TypeText:
		floor(KeyFontSize, MinFontSize)
		floor(KeyWidth, MinTextWidth)
	}
	return e
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// nonFinite 判断原始属性值是否为 NaN 或 ±Inf；Props.Float 对这类值返回 ok=false。
func nonFinite(v any) bool {
	switch n := v.(type) {
	case float64:
		return !finite(n)
	case float32:
		return !finite(float64(n))
	default:
		return false
	}
}
