package element

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(w, h float64) Element {
	return Element{ID: "r1", Type: TypeRect, Props: Props{KeyX: 10.0, KeyY: 20.0, KeyWidth: w, KeyHeight: h, KeyRotation: 0.0}}
}

func TestApplyTranslation(t *testing.T) {
	e := rect(50, 40)
	out := ApplyTranslation(e, 5, -3)
	assert.Equal(t, 15.0, out.Props.Num(KeyX))
	assert.Equal(t, 17.0, out.Props.Num(KeyY))
	assert.Equal(t, 50.0, out.Props.Num(KeyWidth))
	// 输入不被修改
	assert.Equal(t, 10.0, e.Props.Num(KeyX))
}

func TestApplyTransformRect(t *testing.T) {
	out := ApplyTransform(rect(100, 50), Transform{ScaleX: 1.5, ScaleY: 2, Rotation: 30, X: 1, Y: 2})
	assert.Equal(t, 150.0, out.Props.Num(KeyWidth))
	assert.Equal(t, 100.0, out.Props.Num(KeyHeight))
	assert.Equal(t, 30.0, out.Rotation())
	x, y := out.Position()
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 2.0, y)
}

func TestApplyTransformClampsRect(t *testing.T) {
	out := ApplyTransform(rect(10, 10), Transform{ScaleX: 0.1, ScaleY: 0.1, X: 10, Y: 20})
	assert.Equal(t, 5.0, out.Props.Num(KeyWidth))
	assert.Equal(t, 5.0, out.Props.Num(KeyHeight))
}

func TestApplyTransformRotationIsAbsolute(t *testing.T) {
	e := rect(10, 10)
	e.Props[KeyRotation] = 45.0
	out := ApplyTransform(e, Transform{ScaleX: 1, ScaleY: 1, Rotation: 10})
	assert.Equal(t, 10.0, out.Rotation())
}

func TestApplyTransformByType(t *testing.T) {
	circle := Element{ID: "c", Type: TypeCircle, Props: Props{KeyRadius: 40.0}}
	assert.Equal(t, 80.0, ApplyTransform(circle, Transform{ScaleX: 2, ScaleY: 3}).Props.Num(KeyRadius))

	star := Element{ID: "s", Type: TypeStar, Props: Props{KeyInnerRadius: 10.0, KeyOuterRadius: 30.0}}
	out := ApplyTransform(star, Transform{ScaleX: 2, ScaleY: 2})
	assert.Equal(t, 20.0, out.Props.Num(KeyInnerRadius))
	assert.Equal(t, 60.0, out.Props.Num(KeyOuterRadius))

	line := Element{ID: "l", Type: TypeLine, Props: Props{}}
	line.Props.SetPoints([]float64{0, 0, 100, 50})
	assert.Equal(t, []float64{0, 0, 200, 25}, ApplyTransform(line, Transform{ScaleX: 2, ScaleY: 0.5}).Props.Points())

	text := Element{ID: "t", Type: TypeText, Props: Props{KeyFontSize: 20.0, KeyWidth: 100.0}}
	out = ApplyTransform(text, Transform{ScaleX: 1.5, ScaleY: 9})
	assert.Equal(t, 30.0, out.Props.Num(KeyFontSize))
	assert.Equal(t, 150.0, out.Props.Num(KeyWidth))
}

func TestApplyTransformAutoWidthText(t *testing.T) {
	text := Element{ID: "t", Type: TypeText, Props: Props{KeyFontSize: 20.0, KeyText: "Invoice total due"}}
	b, _ := Bounds(text)
	out := ApplyTransform(text, Transform{ScaleX: 1.5, ScaleY: 1.5})
	assert.Equal(t, 30.0, out.Props.Num(KeyFontSize))
	assert.InDelta(t, b.W()*1.5, out.Props.Num(KeyWidth), 1e-9)
}

func TestApplyTransformNonFiniteScale(t *testing.T) {
	for _, scale := range []float64{math.NaN(), math.Inf(1)} {
		out := ApplyTransform(rect(100, 50), Transform{ScaleX: scale, ScaleY: scale})
		assert.Equal(t, MinShapeSize, out.Props.Num(KeyWidth))
		assert.Equal(t, MinShapeSize, out.Props.Num(KeyHeight))
		_, err := json.Marshal(out)
		require.NoError(t, err)
	}

	text := Element{Type: TypeText, Props: Props{KeyFontSize: math.NaN(), KeyWidth: math.Inf(-1)}}
	out := Clamp(text)
	assert.Equal(t, MinFontSize, out.Props.Num(KeyFontSize))
	assert.Equal(t, MinTextWidth, out.Props.Num(KeyWidth))
}

func TestApplyTransformClampMinimums(t *testing.T) {
	cases := []struct {
		name string
		e    Element
		key  string
		want float64
	}{
		{"circle", Element{Type: TypeCircle, Props: Props{KeyRadius: 20.0}}, KeyRadius, MinShapeSize},
		{"triangle", Element{Type: TypeTriangle, Props: Props{KeyRadius: 20.0}}, KeyRadius, MinShapeSize},
		{"pentagon", Element{Type: TypePentagon, Props: Props{KeyRadius: 20.0}}, KeyRadius, MinShapeSize},
		{"star", Element{Type: TypeStar, Props: Props{KeyInnerRadius: 10.0, KeyOuterRadius: 20.0}}, KeyOuterRadius, MinShapeSize},
		{"font", Element{Type: TypeText, Props: Props{KeyFontSize: 20.0, KeyWidth: 300.0}}, KeyFontSize, MinFontSize},
		{"text width", Element{Type: TypeText, Props: Props{KeyFontSize: 200.0, KeyWidth: 100.0}}, KeyWidth, MinTextWidth},
		{"rounded", Element{Type: TypeRoundedRect, Props: Props{KeyWidth: 20.0, KeyHeight: 20.0}}, KeyHeight, MinShapeSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ApplyTransform(tc.e, Transform{ScaleX: 0.01, ScaleY: 0.01})
			assert.Equal(t, tc.want, out.Props.Num(tc.key))
		})
	}
}

func TestUnknownTypeIsNoop(t *testing.T) {
	e := Element{ID: "x", Type: Type("Hexagon"), Props: Props{KeyX: 1.0, KeyY: 2.0, "sides": 6.0}}
	snapshot := e.Clone()
	assert.Equal(t, snapshot, ApplyTranslation(e, 10, 10))
	assert.Equal(t, snapshot, ApplyTransform(e, Transform{ScaleX: 3, ScaleY: 3, Rotation: 90, X: 5, Y: 5}))
	_, ok := Bounds(e)
	assert.False(t, ok)
}

func TestNewDefaults(t *testing.T) {
	for _, typ := range Types {
		e := New(typ, RoleHeading, 10, 20)
		require.NotEmpty(t, e.ID)
		assert.Equal(t, typ, e.Type)
		x, y := e.Position()
		assert.Equal(t, 10.0, x)
		assert.Equal(t, 20.0, y)
		b, ok := Bounds(e)
		require.True(t, ok)
		assert.Greater(t, b.W(), 0.0, "type %s", typ)
	}
	a, b := New(TypeRect, "", 0, 0), New(TypeRect, "", 0, 0)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "body", New(TypeText, "", 0, 0).Props.Str(KeyRole))
}

func TestPageLocalRoundTrip(t *testing.T) {
	e := rect(100, 50)
	e.Props[KeyRotation] = 90.0
	px, py := ToPage(e, 100, 0)
	assert.InDelta(t, 10.0, px, 1e-9)
	assert.InDelta(t, 120.0, py, 1e-9)
	lx, ly := FromPage(e, px, py)
	assert.InDelta(t, 100.0, lx, 1e-9)
	assert.InDelta(t, 0.0, ly, 1e-9)
}

func TestNormalizeAndClone(t *testing.T) {
	p := Normalize(Props{"a": 1, "b": []float64{1, 2}, "c": map[string]any{"d": int64(3)}})
	assert.Equal(t, 1.0, p["a"])
	assert.Equal(t, []any{1.0, 2.0}, p["b"])
	assert.Equal(t, map[string]any{"d": 3.0}, p["c"])

	c := p.Clone()
	c["b"].([]any)[0] = 9.0
	assert.Equal(t, 1.0, p["b"].([]any)[0])
}
