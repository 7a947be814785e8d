package canvasrenderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/invoicestudio/renderer"
)

// PDF 收集页面并在 Save 时一次性写出，页面尺寸单位为毫米。
type PDF struct {
	meta  renderer.DocumentMeta
	pages []*pdfPage
}

type pdfPage struct {
	c   *canvas.Canvas
	ctx *canvas.Context
}

var _ renderer.Embedder = (*PDF)(nil)

// NewPDF 创建空文档。
func NewPDF(meta renderer.DocumentMeta) *PDF {
	return &PDF{meta: meta}
}

// NewEmbedder 以 renderer.Embedder 形式返回 NewPDF 的结果。
func NewEmbedder(meta renderer.DocumentMeta) renderer.Embedder { return NewPDF(meta) }

// CreatePage 追加一页并返回页号。
func (d *PDF) CreatePage(width, height float64) int {
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	d.pages = append(d.pages, &pdfPage{c: c, ctx: ctx})
	return len(d.pages) - 1
}

// DrawImage 把 PNG 放到页面的 at 矩形中（左上角为原点，单位毫米）。
func (d *PDF) DrawImage(page int, png []byte, at renderer.Rect) error {
	if page < 0 || page >= len(d.pages) {
		return fmt.Errorf("页码越界: %d", page)
	}
	if at.W <= 0 || at.H <= 0 {
		return fmt.Errorf("放置区域无效: %+v", at)
	}
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("解码位图失败: %w", err)
	}
	dpmm := float64(img.Bounds().Dx()) / at.W
	if dpmm <= 0 {
		dpmm = 1
	}
	d.pages[page].ctx.DrawImage(at.X, at.Y, img, canvas.DPMM(dpmm))
	return nil
}

// Save 输出 PDF 字节。没有页面时报错。
func (d *PDF) Save() ([]byte, error) {
	if len(d.pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	var buf bytes.Buffer
	first := d.pages[0].c
	writer := pdf.New(&buf, first.W, first.H, nil)
	applyMeta(writer, d.meta)
	for i, p := range d.pages {
		if i > 0 {
			writer.NewPage(p.c.W, p.c.H)
		}
		p.c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta renderer.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}
