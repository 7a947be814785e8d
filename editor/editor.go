// Package editor 实现模板画布的交互状态机：选中、拖动、控制点缩放/旋转与网格吸附。
// 指针坐标为屏幕坐标，除以缩放比后得到页面坐标。
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/element"
)

// State 是编辑器的交互状态。
type State int

const (
	Idle State = iota
	Selected
	Dragging
	Transforming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	case Transforming:
		return "transforming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind 是指针事件类型。
type EventKind string

const (
	PointerDown EventKind = "down"
	PointerMove EventKind = "move"
	PointerUp   EventKind = "up"
	DoubleClick EventKind = "dblclick"
)

// Event 是一次指针事件，X/Y 为屏幕坐标。
type Event struct {
	Kind EventKind `json:"kind"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

// Grid 是网格吸附配置。
type Grid struct {
	Enabled bool    `json:"enabled"`
	Size    float64 `json:"size"`
}

// Saver 保存模板；保存失败时编辑器保留全部修改。
type Saver interface {
	SaveTemplate(ctx context.Context, t *document.Template) error
}

// ErrSaveInProgress 表示上一次保存尚未完成。
var ErrSaveInProgress = errors.New("save already in progress")

// hitPadding 是元素命中测试的容差（屏幕像素）。
const hitPadding = 3.0

// Editor 持有模板的工作副本。除 Save 外的方法都不是并发安全的，调用方需串行化。
type Editor struct {
	doc      *document.Template
	selected string
	state    State
	grid     Grid
	zoom     float64

	// OnChange 在每次提交后收到最新的元素列表。
	OnChange func([]element.Element)

	// 交互中的临时状态
	armed     bool
	pressX    float64
	pressY    float64
	origin    element.Element
	transient element.Element
	handle    HandleKind

	saving atomic.Bool
}

// New 检出模板的工作副本。
func New(t *document.Template) *Editor {
	doc := t.Clone()
	if doc == nil {
		doc = document.New("")
	}
	if doc.Page.Width <= 0 || doc.Page.Height <= 0 {
		doc.Page = document.DefaultPage()
	}
	return &Editor{doc: doc, zoom: 1}
}

// State 返回当前状态。
func (e *Editor) State() State { return e.state }

// Selected 返回选中元素的 id，未选中时为空串。
func (e *Editor) Selected() string { return e.selected }

// Zoom 返回视图缩放比。
func (e *Editor) Zoom() float64 { return e.zoom }

// SetZoom 设置视图缩放比，非正值被忽略。
func (e *Editor) SetZoom(z float64) {
	if z > 0 && !math.IsInf(z, 0) {
		e.zoom = z
	}
}

// Grid 返回网格配置。
func (e *Editor) Grid() Grid { return e.grid }

// MinGridSize 是网格间距下限（布局单位）。
const MinGridSize = 1.0

// maxGridLines 限制每个方向生成的辅助线数量。
const maxGridLines = 4096

// ErrInvalidGrid 表示网格间距无效。
var ErrInvalidGrid = errors.New("invalid grid size")

// SetGrid 设置网格配置。启用的网格间距必须是不小于 MinGridSize 的有限数，
// 否则保留原配置并返回 ErrInvalidGrid。
func (e *Editor) SetGrid(g Grid) error {
	if g.Enabled && (math.IsNaN(g.Size) || math.IsInf(g.Size, 0) || g.Size < MinGridSize) {
		return fmt.Errorf("%w: %v (最小 %v)", ErrInvalidGrid, g.Size, MinGridSize)
	}
	e.grid = g
	return nil
}

// Page 返回页面尺寸。
func (e *Editor) Page() document.Page { return e.doc.Page }

// ExtendPage 把页面加高到至少 h。
func (e *Editor) ExtendPage(h float64) { e.doc.Page = e.doc.Page.Extend(h) }

// Document 返回工作副本的深拷贝。
func (e *Editor) Document() *document.Template { return e.doc.Clone() }

// Elements 返回当前元素；拖动或变换过程中，选中元素以临时状态出现。
func (e *Editor) Elements() []element.Element {
	els := e.doc.Elements.Slice()
	if e.state != Dragging && e.state != Transforming {
		return els
	}
	if i := e.doc.Elements.Index(e.transient.ID); i >= 0 {
		els[i] = e.transient
	}
	return els
}

// Handles 返回选中元素的控制点（页面坐标）。
func (e *Editor) Handles() []Handle {
	if e.selected == "" {
		return nil
	}
	el, ok := e.current()
	if !ok {
		return nil
	}
	return handlesFor(el, e.zoom)
}

// Pointer 处理一次指针事件。
func (e *Editor) Pointer(ev Event) {
	px, py := ev.X/e.zoom, ev.Y/e.zoom
	switch ev.Kind {
	case PointerDown:
		e.down(px, py)
	case PointerMove:
		e.move(px, py)
	case PointerUp:
		e.up()
	case DoubleClick:
		if el, ok := e.hit(px, py); ok && el.Type == element.TypeText {
			log.Printf("[INFO] inline text editing is not supported (element %s)", el.ID)
		}
	}
}

func (e *Editor) down(px, py float64) {
	if e.selected != "" {
		if el, ok := e.doc.Elements.Get(e.selected); ok {
			if k, ok := e.hitHandle(el, px, py); ok {
				e.origin = el
				e.transient = el
				e.handle = k
				e.state = Transforming
				return
			}
		}
	}
	el, ok := e.hit(px, py)
	if !ok {
		e.clearSelection()
		return
	}
	e.selected = el.ID
	e.state = Selected
	e.armed = true
	e.pressX, e.pressY = px, py
	e.origin = el
	e.transient = el
}

func (e *Editor) move(px, py float64) {
	switch e.state {
	case Selected:
		if !e.armed {
			return
		}
		e.state = Dragging
		fallthrough
	case Dragging:
		e.transient = element.ApplyTranslation(e.origin, px-e.pressX, py-e.pressY)
	case Transforming:
		t, ok := transformFor(e.origin, e.handle, px, py, e.zoom)
		if !ok {
			return // 保留上一次有效的临时状态
		}
		e.transient = element.ApplyTransform(e.origin, t)
	}
}

func (e *Editor) up() {
	switch e.state {
	case Dragging:
		el := e.snap(e.transient)
		e.commit(el)
	case Transforming:
		el := e.transient
		if el.Type.Known() && !sameGeometry(el, e.origin) {
			e.commit(e.snap(el))
		}
	}
	e.armed = false
	e.handle = ""
	if e.selected != "" {
		e.state = Selected
	} else {
		e.state = Idle
	}
}

func (e *Editor) clearSelection() {
	e.selected = ""
	e.state = Idle
	e.armed = false
	e.handle = ""
}

// commit 按 id 替换单个元素，顺序与其他元素不变。
func (e *Editor) commit(el element.Element) {
	if !e.doc.Elements.Replace(el.ID, el) {
		return
	}
	e.origin = el
	e.transient = el
	e.notify()
}

func (e *Editor) notify() {
	if e.OnChange != nil {
		e.OnChange(e.doc.Elements.Slice())
	}
}

func (e *Editor) current() (element.Element, bool) {
	if (e.state == Dragging || e.state == Transforming) && e.transient.ID == e.selected {
		return e.transient, true
	}
	return e.doc.Elements.Get(e.selected)
}

// hit 返回页面坐标下最上层命中的元素。
func (e *Editor) hit(px, py float64) (element.Element, bool) {
	pad := hitPadding / e.zoom
	for i := e.doc.Elements.Len() - 1; i >= 0; i-- {
		el := e.doc.Elements.At(i)
		b, ok := element.Bounds(el)
		if !ok {
			continue
		}
		lx, ly := element.FromPage(el, px, py)
		p := pad
		if el.Type == element.TypeLine || el.Type == element.TypeDottedLine {
			p = math.Max(pad, el.Props.NumOr(element.KeyStrokeWidth, 1)/2+pad)
		}
		if b.Contains(lx, ly, p) {
			return el, true
		}
	}
	return element.Element{}, false
}

func (e *Editor) hitHandle(el element.Element, px, py float64) (HandleKind, bool) {
	r := HandleRadius / e.zoom
	for _, h := range handlesFor(el, e.zoom) {
		if math.Hypot(px-h.X, py-h.Y) <= r {
			return h.Kind, true
		}
	}
	return "", false
}

// Snap 把坐标吸附到最近的网格点；未启用网格时原样返回。
func (e *Editor) Snap(x, y float64) (float64, float64) {
	if !e.grid.Enabled || e.grid.Size <= 0 {
		return x, y
	}
	s := e.grid.Size
	return math.Round(x/s) * s, math.Round(y/s) * s
}

func (e *Editor) snap(el element.Element) element.Element {
	if !e.grid.Enabled || !el.Type.Known() {
		return el
	}
	x, y := e.Snap(el.Position())
	out := el.Clone()
	out.Props.SetFloat(element.KeyX, x)
	out.Props.SetFloat(element.KeyY, y)
	return out
}

// GridLines 返回覆盖整个页面的网格辅助线；未启用网格时为空。
func (e *Editor) GridLines() []element.Segment {
	if !e.grid.Enabled || !(e.grid.Size >= MinGridSize) {
		return nil
	}
	w, h := e.doc.Page.Width, e.doc.Page.Height
	s := e.grid.Size
	var out []element.Segment
	for i := 0; i < maxGridLines && float64(i)*s <= w; i++ {
		x := float64(i) * s
		out = append(out, element.Segment{X1: x, Y1: 0, X2: x, Y2: h})
	}
	for i := 0; i < maxGridLines && float64(i)*s <= h; i++ {
		y := float64(i) * s
		out = append(out, element.Segment{X1: 0, Y1: y, X2: w, Y2: y})
	}
	return out
}

// Insert 在页面中央插入一个带默认属性的新元素并选中它。
func (e *Editor) Insert(t element.Type, role element.Role) (element.Element, error) {
	if !t.Known() {
		return element.Element{}, fmt.Errorf("未知元素类型: %q", t)
	}
	cx, cy := e.doc.Page.Width/2, e.doc.Page.Height/2
	el := element.New(t, role, cx, cy)
	if b, ok := element.Bounds(el); ok {
		bx, by := b.Center()
		el.Props.SetFloat(element.KeyX, cx-bx)
		el.Props.SetFloat(element.KeyY, cy-by)
	}
	el = e.snap(el)
	if err := e.doc.Elements.Add(el); err != nil {
		return element.Element{}, err
	}
	e.selected = el.ID
	e.state = Selected
	e.armed = false
	e.notify()
	return el, nil
}

// Rename 修改模板名称与描述。
func (e *Editor) Rename(name, description string) {
	e.doc.Name = name
	e.doc.Description = description
}

// Save 把工作副本交给 s。保存期间再次调用返回 ErrSaveInProgress。
func (e *Editor) Save(ctx context.Context, s Saver) error {
	if !e.saving.CompareAndSwap(false, true) {
		return ErrSaveInProgress
	}
	defer e.saving.Store(false)

	doc := e.doc.Clone()
	if err := s.SaveTemplate(ctx, doc); err != nil {
		return fmt.Errorf("保存模板失败: %w", err)
	}
	e.doc.ID = doc.ID
	return nil
}

func sameGeometry(a, b element.Element) bool {
	for _, key := range []string{
		element.KeyX, element.KeyY, element.KeyRotation, element.KeyWidth, element.KeyHeight,
		element.KeyRadius, element.KeyInnerRadius, element.KeyOuterRadius, element.KeyFontSize,
	} {
		if a.Props.Num(key) != b.Props.Num(key) {
			return false
		}
	}
	pa, pb := a.Props.Points(), b.Props.Points()
	if len(pa) != len(pb) {
		return false
	}
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}
