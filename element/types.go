package element

// 该文件定义画布元素的类型集合与元素本身，供编辑器、占位符解析、渲染与序列化共用。

// Type 是元素的封闭类型集合。未知类型可以被序列化保留，但不会被变换或渲染。
type Type string

const (
	TypeLine        Type = "Line"
	TypeDottedLine  Type = "DottedLine"
	TypeRect        Type = "Rect"
	TypeRoundedRect Type = "RoundedRect"
	TypeCircle      Type = "Circle"
	TypeTriangle    Type = "Triangle"
	TypePentagon    Type = "Pentagon"
	TypeStar        Type = "Star"
	TypeText        Type = "Text"
)

// Types 按插入面板的顺序列出所有已知类型。
var Types = []Type{
	TypeText, TypeLine, TypeDottedLine, TypeRect, TypeRoundedRect,
	TypeCircle, TypeTriangle, TypePentagon, TypeStar,
}

// Known 报告 t 是否属于已知类型集合。
func (t Type) Known() bool {
	switch t {
	case TypeLine, TypeDottedLine, TypeRect, TypeRoundedRect,
		TypeCircle, TypeTriangle, TypePentagon, TypeStar, TypeText:
		return true
	default:
		return false
	}
}

// Centered 报告该类型的 x/y 是否表示中心点（否则为左上角或线段原点）。
func (t Type) Centered() bool {
	switch t {
	case TypeCircle, TypeTriangle, TypePentagon, TypeStar:
		return true
	default:
		return false
	}
}

// Role 仅影响文本元素的默认样式。
type Role string

const (
	RoleHeading    Role = "heading"
	RoleSubheading Role = "subheading"
	RoleBody       Role = "body"
)

// Prop keys shared by the model, the resolver and the renderer.
const (
	KeyX            = "x"
	KeyY            = "y"
	KeyRotation     = "rotation"
	KeyWidth        = "width"
	KeyHeight       = "height"
	KeyRadius       = "radius"
	KeyInnerRadius  = "innerRadius"
	KeyOuterRadius  = "outerRadius"
	KeyCornerRadius = "cornerRadius"
	KeyPoints       = "points"
	KeyText         = "text"
	KeyFontSize     = "fontSize"
	KeyFontFamily   = "fontFamily"
	KeyFontStyle    = "fontStyle"
	KeyAlign        = "align"
	KeyRole         = "role"
	KeyPlaceholder  = "placeholderId"
	KeyFill         = "fill"
	KeyStroke       = "stroke"
	KeyStrokeWidth  = "strokeWidth"
	KeyDash         = "dash"
)

// Element 是画布上的一个图元。Props 保存类型相关的属性，未知键原样保留。
type Element struct {
	ID    string `json:"id"`
	Type  Type   `json:"type"`
	Props Props  `json:"props"`
}

// Clone 返回深拷贝。
func (e Element) Clone() Element {
	return Element{ID: e.ID, Type: e.Type, Props: e.Props.Clone()}
}

// Placeholder 返回文本元素的 placeholderId；非文本元素或未设置时 ok 为 false。
func (e Element) Placeholder() (string, bool) {
	if e.Type != TypeText {
		return "", false
	}
	id := e.Props.Str(KeyPlaceholder)
	return id, id != ""
}

// Position 返回元素锚点坐标。
func (e Element) Position() (float64, float64) {
	return e.Props.Num(KeyX), e.Props.Num(KeyY)
}

// Rotation 返回旋转角度（度，顺时针）。
func (e Element) Rotation() float64 { return e.Props.Num(KeyRotation) }
