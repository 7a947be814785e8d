package canvasrenderer

import (
	"fmt"
	"image/color"
	"log"
	"math"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/element"
	"github.com/ByLCY/invoicestudio/renderer"
)

const (
	defaultStrokeWidth = 1.0
	gridStrokeWidth    = 0.5
	selectionStroke    = 1.0
)

var (
	gridColor      = canvas.Hex("#e5e7eb")
	selectionColor = canvas.Hex("#2563eb")
)

// Surface 持有一张绘制完成的 canvas，单位为布局单位。
type Surface struct {
	c          *canvas.Canvas
	background color.RGBA
}

var _ renderer.Surface = (*Surface)(nil)

// Size 返回画布宽高。
func (s *Surface) Size() (float64, float64) {
	return s.c.W, s.c.H
}

// Surface 按元素顺序绘制整张页面（后绘制者在上）。未知类型与缺少几何属性的元素被跳过。
func (r *Renderer) Surface(elements []element.Element, page document.Page, opts renderer.SurfaceOptions) (renderer.Surface, error) {
	if page.Width <= 0 || page.Height <= 0 {
		return nil, fmt.Errorf("页面尺寸无效: %gx%g", page.Width, page.Height)
	}
	theme := opts.Theme
	bg, ok := parseColor(theme.Color(theme.Background))
	if !ok {
		bg = canvas.White
	}

	c := canvas.New(page.Width, page.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与编辑器保持左上角为原点

	ctx.SetFillColor(bg)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(page.Width, page.Height))

	if len(opts.GridLines) > 0 {
		drawSegments(ctx, opts.GridLines, gridColor, gridStrokeWidth)
	}

	for _, el := range elements {
		if err := r.drawElement(ctx, el, theme); err != nil {
			return nil, fmt.Errorf("绘制元素 %s 失败: %w", el.ID, err)
		}
	}

	if opts.Selected != "" {
		for _, el := range elements {
			if el.ID == opts.Selected {
				drawSelection(ctx, el)
				break
			}
		}
	}
	return &Surface{c: c, background: toRGBA(bg)}, nil
}

func (r *Renderer) drawElement(ctx *canvas.Context, el element.Element, theme renderer.Theme) error {
	if !el.Type.Known() {
		log.Printf("[RENDER] skip element %s of unknown type %q", el.ID, el.Type)
		return nil
	}
	x, y := el.Position()
	ctx.Push()
	defer ctx.Pop()
	if rot := el.Rotation(); rot != 0 {
		ctx.RotateAbout(rot, x, y)
	}

	p := el.Props
	switch el.Type {
	case element.TypeText:
		return r.drawText(ctx, el, theme)
	case element.TypeLine, element.TypeDottedLine:
		drawLine(ctx, el, theme)
	case element.TypeRect:
		applyShapeStyle(ctx, p, theme)
		ctx.DrawPath(x, y, canvas.Rectangle(p.Num(element.KeyWidth), p.Num(element.KeyHeight)))
	case element.TypeRoundedRect:
		applyShapeStyle(ctx, p, theme)
		w, h := p.Num(element.KeyWidth), p.Num(element.KeyHeight)
		radius := math.Min(p.Num(element.KeyCornerRadius), math.Min(w, h)/2)
		ctx.DrawPath(x, y, canvas.RoundedRectangle(w, h, radius))
	case element.TypeCircle:
		applyShapeStyle(ctx, p, theme)
		ctx.DrawPath(x, y, canvas.Circle(p.Num(element.KeyRadius)))
	case element.TypeTriangle:
		applyShapeStyle(ctx, p, theme)
		ctx.DrawPath(x, y, polygon(regularPolygon(3, p.Num(element.KeyRadius))))
	case element.TypePentagon:
		applyShapeStyle(ctx, p, theme)
		ctx.DrawPath(x, y, polygon(regularPolygon(5, p.Num(element.KeyRadius))))
	case element.TypeStar:
		applyShapeStyle(ctx, p, theme)
		n := int(p.NumOr("numPoints", 5))
		ctx.DrawPath(x, y, polygon(starPolygon(n, p.Num(element.KeyOuterRadius), p.Num(element.KeyInnerRadius))))
	}
	return nil
}

func applyShapeStyle(ctx *canvas.Context, p element.Props, theme renderer.Theme) {
	if fill, ok := parseColor(theme.Color(p.Str(element.KeyFill))); ok {
		ctx.SetFillColor(fill)
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	applyStroke(ctx, p, theme)
}

func applyStroke(ctx *canvas.Context, p element.Props, theme renderer.Theme) {
	w := p.NumOr(element.KeyStrokeWidth, defaultStrokeWidth)
	stroke, ok := parseColor(theme.Color(p.Str(element.KeyStroke)))
	if !ok || w <= 0 {
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.SetStrokeWidth(0)
		return
	}
	ctx.SetStrokeColor(stroke)
	ctx.SetStrokeWidth(w)
}

// drawLine 绘制折线，points 相对锚点。
func drawLine(ctx *canvas.Context, el element.Element, theme renderer.Theme) {
	points := el.Props.Points()
	if len(points) < 4 {
		return
	}
	ctx.SetFillColor(canvas.Transparent)
	applyStroke(ctx, el.Props, theme)
	if el.Type == element.TypeDottedLine {
		dash := dashPattern(el.Props)
		ctx.SetDashes(0, dash...)
	}
	path := &canvas.Path{}
	path.MoveTo(points[0], points[1])
	for i := 2; i+1 < len(points); i += 2 {
		path.LineTo(points[i], points[i+1])
	}
	x, y := el.Position()
	ctx.DrawPath(x, y, path)
}

func dashPattern(p element.Props) []float64 {
	var dash []float64
	if raw, ok := p[element.KeyDash].([]any); ok {
		for _, v := range raw {
			if f, ok := v.(float64); ok && f > 0 {
				dash = append(dash, f)
			}
		}
	}
	if len(dash) == 0 {
		w := p.NumOr(element.KeyStrokeWidth, defaultStrokeWidth)
		dash = []float64{w * 2, w * 2}
	}
	return dash
}

// regularPolygon 返回以原点为中心、首个顶点朝上的正多边形顶点。
func regularPolygon(n int, radius float64) [][2]float64 {
	pts := make([][2]float64, n)
	for i := 0; i < n; i++ {
		a := -math.Pi/2 + float64(i)*2*math.Pi/float64(n)
		pts[i] = [2]float64{radius * math.Cos(a), radius * math.Sin(a)}
	}
	return pts
}

// starPolygon 交替使用外径与内径生成星形顶点。
func starPolygon(n int, outer, inner float64) [][2]float64 {
	if n < 2 {
		n = 5
	}
	pts := make([][2]float64, 2*n)
	for i := 0; i < 2*n; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/float64(n)
		pts[i] = [2]float64{r * math.Cos(a), r * math.Sin(a)}
	}
	return pts
}

func polygon(pts [][2]float64) *canvas.Path {
	path := &canvas.Path{}
	for i, pt := range pts {
		if i == 0 {
			path.MoveTo(pt[0], pt[1])
		} else {
			path.LineTo(pt[0], pt[1])
		}
	}
	path.Close()
	return path
}

func drawSegments(ctx *canvas.Context, segs []element.Segment, col color.RGBA, width float64) {
	ctx.Push()
	defer ctx.Pop()
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(col)
	ctx.SetStrokeWidth(width)
	for _, s := range segs {
		path := &canvas.Path{}
		path.MoveTo(0, 0)
		path.LineTo(s.X2-s.X1, s.Y2-s.Y1)
		ctx.DrawPath(s.X1, s.Y1, path)
	}
}

// drawSelection 沿旋转后的包围盒绘制选中框。
func drawSelection(ctx *canvas.Context, el element.Element) {
	corners, ok := element.Corners(el)
	if !ok {
		return
	}
	pts := make([][2]float64, len(corners))
	for i, c := range corners {
		pts[i] = [2]float64{c[0] - corners[0][0], c[1] - corners[0][1]}
	}
	ctx.Push()
	defer ctx.Pop()
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(selectionColor)
	ctx.SetStrokeWidth(selectionStroke)
	ctx.DrawPath(corners[0][0], corners[0][1], polygon(pts))
}
