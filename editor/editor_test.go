package editor

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/element"
	"github.com/ByLCY/invoicestudio/store"
)

func rectAt(id string, x, y, w, h float64) element.Element {
	return element.Element{ID: id, Type: element.TypeRect, Props: element.Props{
		element.KeyX: x, element.KeyY: y, element.KeyRotation: 0.0,
		element.KeyWidth: w, element.KeyHeight: h,
	}}
}

func circleAt(id string, x, y, r float64) element.Element {
	return element.Element{ID: id, Type: element.TypeCircle, Props: element.Props{
		element.KeyX: x, element.KeyY: y, element.KeyRotation: 0.0, element.KeyRadius: r,
	}}
}

func newEditor(els ...element.Element) *Editor {
	tpl := document.New("Test")
	tpl.Elements = document.MustElements(els...)
	return New(tpl)
}

func click(e *Editor, x, y float64) {
	e.Pointer(Event{Kind: PointerDown, X: x, Y: y})
	e.Pointer(Event{Kind: PointerUp, X: x, Y: y})
}

func drag(e *Editor, fromX, fromY, toX, toY float64) {
	e.Pointer(Event{Kind: PointerDown, X: fromX, Y: fromY})
	e.Pointer(Event{Kind: PointerMove, X: toX, Y: toY})
	e.Pointer(Event{Kind: PointerUp, X: toX, Y: toY})
}

func get(t *testing.T, e *Editor, id string) element.Element {
	t.Helper()
	el, ok := e.doc.Elements.Get(id)
	require.True(t, ok, id)
	return el
}

func TestSelectAndClear(t *testing.T) {
	e := newEditor(rectAt("a", 0, 0, 100, 100), rectAt("b", 50, 50, 100, 100))

	click(e, 75, 75)
	assert.Equal(t, "b", e.Selected(), "topmost element wins")
	assert.Equal(t, Selected, e.State())

	click(e, 10, 10)
	assert.Equal(t, "a", e.Selected())

	click(e, 500, 500)
	assert.Equal(t, "", e.Selected())
	assert.Equal(t, Idle, e.State())
}

func TestDragSnapsToGrid(t *testing.T) {
	e := newEditor(rectAt("a", 50, 50, 120, 80))
	require.NoError(t, e.SetGrid(Grid{Enabled: true, Size: 10}))

	e.Pointer(Event{Kind: PointerDown, X: 60, Y: 60})
	e.Pointer(Event{Kind: PointerMove, X: 113, Y: 67})
	assert.Equal(t, Dragging, e.State())
	live := e.Elements()[0]
	assert.Equal(t, 103.0, live.Props.Num(element.KeyX))
	assert.Equal(t, 57.0, live.Props.Num(element.KeyY))
	assert.Equal(t, 50.0, get(t, e, "a").Props.Num(element.KeyX), "not committed before release")

	e.Pointer(Event{Kind: PointerUp, X: 113, Y: 67})
	el := get(t, e, "a")
	assert.Equal(t, 100.0, el.Props.Num(element.KeyX))
	assert.Equal(t, 60.0, el.Props.Num(element.KeyY))
	assert.Equal(t, Selected, e.State())
}

func TestDragWithoutGrid(t *testing.T) {
	e := newEditor(rectAt("a", 50, 50, 120, 80))
	drag(e, 60, 60, 113, 67)
	el := get(t, e, "a")
	assert.Equal(t, 103.0, el.Props.Num(element.KeyX))
	assert.Equal(t, 57.0, el.Props.Num(element.KeyY))
}

func TestCommitTouchesOnlyOneElement(t *testing.T) {
	a, b, c := rectAt("a", 0, 0, 40, 40), rectAt("b", 100, 0, 40, 40), rectAt("c", 200, 0, 40, 40)
	e := newEditor(a, b, c)
	var changes [][]element.Element
	e.OnChange = func(els []element.Element) { changes = append(changes, els) }

	drag(e, 110, 10, 130, 30)

	require.Len(t, changes, 1)
	got := changes[0]
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, a, got[0])
	assert.Equal(t, c, got[2])
	assert.Equal(t, 120.0, got[1].Props.Num(element.KeyX))
}

func TestClickWithoutMoveDoesNotCommit(t *testing.T) {
	e := newEditor(rectAt("a", 0, 0, 40, 40))
	calls := 0
	e.OnChange = func([]element.Element) { calls++ }
	click(e, 10, 10)
	assert.Zero(t, calls)
}

func TestCircleTransformLocksAspect(t *testing.T) {
	e := newEditor(circleAt("c", 100, 100, 40))
	click(e, 100, 100)
	require.Equal(t, "c", e.Selected())

	// 右下角控制点位于 (140,140)；拖到 (220,300) 时原始缩放为 sx=2, sy=3
	e.Pointer(Event{Kind: PointerDown, X: 140, Y: 140})
	require.Equal(t, Transforming, e.State())
	e.Pointer(Event{Kind: PointerMove, X: 220, Y: 300})
	e.Pointer(Event{Kind: PointerUp, X: 220, Y: 300})

	el := get(t, e, "c")
	assert.InDelta(t, 80.0, el.Props.Num(element.KeyRadius), 1e-9)
	assert.InDelta(t, 140.0, el.Props.Num(element.KeyX), 1e-9)
	assert.InDelta(t, 140.0, el.Props.Num(element.KeyY), 1e-9)
	assert.Equal(t, Selected, e.State())
}

func TestRectTransformIndependentAxes(t *testing.T) {
	e := newEditor(rectAt("r", 0, 0, 120, 80))
	click(e, 10, 10)
	drag(e, 120, 80, 240, 120)

	el := get(t, e, "r")
	assert.InDelta(t, 240.0, el.Props.Num(element.KeyWidth), 1e-9)
	assert.InDelta(t, 120.0, el.Props.Num(element.KeyHeight), 1e-9)
	assert.InDelta(t, 0.0, el.Props.Num(element.KeyX), 1e-9)
	assert.InDelta(t, 0.0, el.Props.Num(element.KeyY), 1e-9)

	// 第二次变换从提交后的尺寸开始，不会叠加上一次的缩放
	drag(e, 240, 120, 120, 60)
	el = get(t, e, "r")
	assert.InDelta(t, 120.0, el.Props.Num(element.KeyWidth), 1e-9)
	assert.InDelta(t, 60.0, el.Props.Num(element.KeyHeight), 1e-9)
}

func TestTransformBelowMinimumIsRejected(t *testing.T) {
	e := newEditor(rectAt("r", 0, 0, 120, 80))
	click(e, 10, 10)

	e.Pointer(Event{Kind: PointerDown, X: 120, Y: 80})
	e.Pointer(Event{Kind: PointerMove, X: 60, Y: 40})
	e.Pointer(Event{Kind: PointerMove, X: 2, Y: 2})
	live := e.Elements()[0]
	assert.InDelta(t, 60.0, live.Props.Num(element.KeyWidth), 1e-9, "rejected move keeps the last valid box")
	e.Pointer(Event{Kind: PointerUp, X: 2, Y: 2})

	el := get(t, e, "r")
	assert.InDelta(t, 60.0, el.Props.Num(element.KeyWidth), 1e-9)
	assert.InDelta(t, 40.0, el.Props.Num(element.KeyHeight), 1e-9)

	calls := 0
	e.OnChange = func([]element.Element) { calls++ }
	drag(e, 60, 40, 1, 1)
	assert.Zero(t, calls)
	assert.InDelta(t, 60.0, get(t, e, "r").Props.Num(element.KeyWidth), 1e-9)
}

func TestRotateAboutCenter(t *testing.T) {
	e := newEditor(rectAt("r", 0, 0, 100, 100))
	click(e, 50, 50)

	e.Pointer(Event{Kind: PointerDown, X: 50, Y: -30})
	require.Equal(t, Transforming, e.State())
	e.Pointer(Event{Kind: PointerMove, X: 150, Y: 50})
	e.Pointer(Event{Kind: PointerUp, X: 150, Y: 50})

	el := get(t, e, "r")
	assert.InDelta(t, 90.0, el.Props.Num(element.KeyRotation), 1e-9)
	assert.InDelta(t, 100.0, el.Props.Num(element.KeyX), 1e-9)
	assert.InDelta(t, 0.0, el.Props.Num(element.KeyY), 1e-9)
	assert.InDelta(t, 100.0, el.Props.Num(element.KeyWidth), 1e-9)

	// 旋转后仍能在原区域中心选中
	click(e, 500, 500)
	click(e, 50, 50)
	assert.Equal(t, "r", e.Selected())
}

func TestZoomDividesPointerCoordinates(t *testing.T) {
	e := newEditor(rectAt("a", 50, 50, 120, 80))
	e.SetZoom(2)
	click(e, 20, 20)
	assert.Equal(t, "", e.Selected(), "(10,10) in page space is empty")

	drag(e, 120, 120, 140, 160)
	el := get(t, e, "a")
	assert.Equal(t, 60.0, el.Props.Num(element.KeyX))
	assert.Equal(t, 70.0, el.Props.Num(element.KeyY))
}

func TestHandlesByType(t *testing.T) {
	text := element.New(element.TypeText, element.RoleBody, 10, 10)
	line := element.New(element.TypeLine, "", 10, 300)
	e := newEditor(circleAt("c", 100, 100, 40), text, line)

	click(e, 100, 100)
	assert.Len(t, e.Handles(), 5)

	e.selected = text.ID
	assert.Len(t, e.Handles(), 9)

	e.selected = line.ID
	assert.Len(t, e.Handles(), 5)
}

func TestTextSideHandleScalesWidthAndFont(t *testing.T) {
	text := element.New(element.TypeText, element.RoleBody, 0, 0)
	e := newEditor(text)
	click(e, 5, 5)
	require.Equal(t, text.ID, e.Selected())

	var right Handle
	for _, h := range e.Handles() {
		if h.Kind == MiddleRight {
			right = h
		}
	}
	drag(e, right.X, right.Y, right.X*2, right.Y)

	el := get(t, e, text.ID)
	assert.InDelta(t, 440.0, el.Props.Num(element.KeyWidth), 1e-6)
	assert.InDelta(t, 28.0, el.Props.Num(element.KeyFontSize), 1e-6)
}

func TestResizeAutoWidthText(t *testing.T) {
	text := element.Element{ID: "t", Type: element.TypeText, Props: element.Props{
		element.KeyX:        0.0,
		element.KeyY:        0.0,
		element.KeyFontSize: 20.0,
		element.KeyText:     "Payment due within thirty days",
	}}
	box, _ := element.Bounds(text)
	e := newEditor(text)
	click(e, 5, 5)
	require.Equal(t, "t", e.Selected())

	var right Handle
	for _, h := range e.Handles() {
		if h.Kind == MiddleRight {
			right = h
		}
	}
	require.InDelta(t, box.W(), right.X, 1e-6)
	drag(e, right.X, right.Y, right.X*1.5, right.Y)

	el := get(t, e, "t")
	assert.InDelta(t, box.W()*1.5, el.Props.Num(element.KeyWidth), 1e-6)
	assert.InDelta(t, 30.0, el.Props.Num(element.KeyFontSize), 1e-6)
}

func TestDoubleClickIsNoop(t *testing.T) {
	text := element.New(element.TypeText, element.RoleHeading, 0, 0)
	e := newEditor(text)
	before := e.Elements()
	e.Pointer(Event{Kind: DoubleClick, X: 5, Y: 5})
	assert.Equal(t, before, e.Elements())
	assert.Equal(t, Idle, e.State())
}

func TestInsertCentersAndSelects(t *testing.T) {
	e := newEditor()
	var got []element.Element
	e.OnChange = func(els []element.Element) { got = els }

	el, err := e.Insert(element.TypeRect, "")
	require.NoError(t, err)
	assert.Equal(t, el.ID, e.Selected())
	assert.Len(t, got, 1)
	assert.InDelta(t, document.DefaultPageWidth/2-60, el.Props.Num(element.KeyX), 1e-9)

	c, err := e.Insert(element.TypeStar, "")
	require.NoError(t, err)
	assert.InDelta(t, document.DefaultPageWidth/2, c.Props.Num(element.KeyX), 1e-9)

	_, err = e.Insert("Hexagon", "")
	assert.Error(t, err)
}

func TestGridLines(t *testing.T) {
	tpl := document.New("g")
	tpl.Page = document.Page{Width: 100, Height: 50}
	e := New(tpl)
	assert.Empty(t, e.GridLines())

	require.NoError(t, e.SetGrid(Grid{Enabled: true, Size: 25}))
	lines := e.GridLines()
	assert.Len(t, lines, 5+3)
	assert.Equal(t, element.Segment{X1: 100, Y1: 0, X2: 100, Y2: 50}, lines[4])
}

func TestSetGridRejectsTinySize(t *testing.T) {
	e := newEditor()
	require.NoError(t, e.SetGrid(Grid{Enabled: true, Size: 20}))

	for _, size := range []float64{0, -5, 0.0005, 1e-9, math.NaN(), math.Inf(1)} {
		err := e.SetGrid(Grid{Enabled: true, Size: size})
		assert.ErrorIs(t, err, ErrInvalidGrid, "size %v", size)
	}
	assert.Equal(t, Grid{Enabled: true, Size: 20}, e.Grid(), "invalid grid keeps previous config")

	// 关闭网格时不检查间距
	require.NoError(t, e.SetGrid(Grid{Enabled: false, Size: 0}))
	assert.Empty(t, e.GridLines())
}

func TestGridLinesBounded(t *testing.T) {
	tpl := document.New("g")
	tpl.Page = document.Page{Width: 1e7, Height: 10}
	e := New(tpl)
	require.NoError(t, e.SetGrid(Grid{Enabled: true, Size: MinGridSize}))
	assert.LessOrEqual(t, len(e.GridLines()), 2*maxGridLines)
}

func TestSnap(t *testing.T) {
	e := newEditor()
	x, y := e.Snap(103, 57)
	assert.Equal(t, 103.0, x)
	assert.Equal(t, 57.0, y)

	require.NoError(t, e.SetGrid(Grid{Enabled: true, Size: 10}))
	x, y = e.Snap(103, 57)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 60.0, y)
}

type failingSaver struct{}

func (failingSaver) SaveTemplate(context.Context, *document.Template) error {
	return errors.New("network down")
}

func TestSaveKeepsEditsOnFailure(t *testing.T) {
	e := newEditor(rectAt("a", 0, 0, 40, 40))
	drag(e, 10, 10, 30, 30)

	require.Error(t, e.Save(context.Background(), failingSaver{}))
	assert.Equal(t, 20.0, get(t, e, "a").Props.Num(element.KeyX))

	mem := store.NewMemory()
	e.Rename("", "")
	err := e.Save(context.Background(), mem)
	assert.True(t, errors.Is(err, document.ErrValidation))

	e.Rename("Saved", "desc")
	require.NoError(t, e.Save(context.Background(), mem))
	require.NotEmpty(t, e.Document().ID)
	saved, err := mem.GetTemplate(context.Background(), e.Document().ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, saved.Elements.At(0).Props.Num(element.KeyX))
}

func TestWorkingCopyIsIsolated(t *testing.T) {
	tpl := document.New("src")
	tpl.Elements = document.MustElements(rectAt("a", 0, 0, 40, 40))
	e := New(tpl)
	drag(e, 10, 10, 30, 30)
	el, _ := tpl.Elements.Get("a")
	assert.Equal(t, 0.0, el.Props.Num(element.KeyX))
}
