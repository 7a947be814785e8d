package element

import "github.com/google/uuid"

const (
	defaultStroke = "#1f2937"
	defaultFill   = "#e5e7eb"
	defaultText   = "#111827"
)

// New 创建一个带默认属性的新元素，id 为新生成的 UUID。
// 对未知类型返回只含坐标的元素，由调用方决定是否丢弃。
func New(t Type, role Role, x, y float64) Element {
	p := Props{KeyX: x, KeyY: y, KeyRotation: 0.0}
	switch t {
	case TypeRect:
		p[KeyWidth] = 120.0
		p[KeyHeight] = 80.0
		p[KeyFill] = defaultFill
		p[KeyStroke] = defaultStroke
		p[KeyStrokeWidth] = 1.0
	case TypeRoundedRect:
		p[KeyWidth] = 120.0
		p[KeyHeight] = 80.0
		p[KeyCornerRadius] = 12.0
		p[KeyFill] = defaultFill
		p[KeyStroke] = defaultStroke
		p[KeyStrokeWidth] = 1.0
	case TypeCircle:
		p[KeyRadius] = 40.0
		p[KeyFill] = defaultFill
		p[KeyStroke] = defaultStroke
		p[KeyStrokeWidth] = 1.0
	case TypeTriangle, TypePentagon:
		p[KeyRadius] = 45.0
		p[KeyFill] = defaultFill
		p[KeyStroke] = defaultStroke
		p[KeyStrokeWidth] = 1.0
	case TypeStar:
		p[KeyInnerRadius] = 20.0
		p[KeyOuterRadius] = 45.0
		p[KeyFill] = defaultFill
		p[KeyStroke] = defaultStroke
		p[KeyStrokeWidth] = 1.0
	case TypeLine:
		p.SetPoints([]float64{0, 0, 200, 0})
		p[KeyStroke] = defaultStroke
		p[KeyStrokeWidth] = 2.0
	case TypeDottedLine:
		p.SetPoints([]float64{0, 0, 200, 0})
		p[KeyStroke] = defaultStroke
		p[KeyStrokeWidth] = 2.0
		p[KeyDash] = []any{6.0, 4.0}
	case TypeText:
		if role == "" {
			role = RoleBody
		}
		p[KeyRole] = string(role)
		p[KeyFill] = defaultText
		p[KeyFontFamily] = "sans"
		switch role {
		case RoleHeading:
			p[KeyText] = "Heading"
			p[KeyFontSize] = 32.0
			p[KeyFontStyle] = "bold"
			p[KeyWidth] = 320.0
		case RoleSubheading:
			p[KeyText] = "Subheading"
			p[KeyFontSize] = 20.0
			p[KeyFontStyle] = "bold"
			p[KeyWidth] = 260.0
		default:
			p[KeyText] = "Body text"
			p[KeyFontSize] = 14.0
			p[KeyFontStyle] = "normal"
			p[KeyWidth] = 220.0
		}
	}
	return Element{ID: uuid.NewString(), Type: t, Props: p}
}
