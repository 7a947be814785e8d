// Package pipeline 把模板与发票记录渲染为 PDF：
// 读取模板、读取发票、代入占位符、绘制、栅格化、居中放入 A4 页面、输出。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/placeholder"
	"github.com/ByLCY/invoicestudio/renderer"
	"github.com/ByLCY/invoicestudio/store"
)

// A4 输出页面（毫米）。
const (
	PageWidthMM  = 210.0
	PageHeightMM = 297.0
)

// DefaultPixelRatio 是栅格化的默认像素比，也是下限。
const DefaultPixelRatio = 2.0

// TemplateStore 读取与保存模板。
type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*document.Template, error)
	SaveTemplate(ctx context.Context, t *document.Template) error
}

// InvoiceStore 读取发票记录与客户资料。
type InvoiceStore interface {
	GetInvoice(ctx context.Context, id string) (store.Record, error)
	GetClient(ctx context.Context, id string) (*store.Client, error)
}

// EmbedderFactory 为每次渲染创建新的文档。
type EmbedderFactory func(meta renderer.DocumentMeta) renderer.Embedder

// Config 组装流水线依赖。
type Config struct {
	Templates   TemplateStore
	Invoices    InvoiceStore
	Painter     renderer.Painter
	Rasterizer  renderer.Rasterizer
	NewEmbedder EmbedderFactory
	Resolver    *placeholder.Resolver
	Theme       renderer.Theme
	PixelRatio  float64
	Creator     string
}

// Pipeline 执行渲染。同一 (模板, 发票) 的并发重复请求会被拒绝。
type Pipeline struct {
	cfg Config

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New 创建流水线。PixelRatio 低于默认值时取默认值。
func New(cfg Config) (*Pipeline, error) {
	if cfg.Templates == nil || cfg.Invoices == nil {
		return nil, fmt.Errorf("缺少模板或发票存储")
	}
	if cfg.Painter == nil || cfg.Rasterizer == nil || cfg.NewEmbedder == nil {
		return nil, fmt.Errorf("缺少渲染组件")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = placeholder.NewResolver(placeholder.Options{})
	}
	if cfg.PixelRatio < DefaultPixelRatio || math.IsNaN(cfg.PixelRatio) {
		cfg.PixelRatio = DefaultPixelRatio
	}
	if cfg.Theme.Background == "" {
		cfg.Theme = renderer.DefaultTheme()
	}
	if cfg.Creator == "" {
		cfg.Creator = "invoicestudio"
	}
	return &Pipeline{cfg: cfg, inflight: make(map[string]struct{})}, nil
}

// Request 是一次渲染请求。ViewZoom 是调用方编辑视图的缩放，只用于产生提示，不影响输出。
type Request struct {
	TemplateID string
	InvoiceID  string
	ViewZoom   float64
}

// Result 是渲染结果。
type Result struct {
	PDF      []byte
	FileName string
	Warnings []string
}

// Render 依次执行各步骤，任何一步失败都不会产生部分输出。
func (p *Pipeline) Render(ctx context.Context, req Request) (*Result, error) {
	key := req.TemplateID + "\x00" + req.InvoiceID
	if !p.acquire(key) {
		return nil, ErrInProgress
	}
	defer p.release(key)

	var warnings []string
	if req.ViewZoom != 0 && req.ViewZoom != 1 {
		warnings = append(warnings, fmt.Sprintf("编辑视图缩放为 %.0f%%，导出始终按 100%% 渲染", req.ViewZoom*100))
	}

	tpl, err := p.cfg.Templates.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, classify(StepLoadTemplate, req.TemplateID, err, ErrTemplateNotFound, ErrTemplateFetch)
	}
	rec, err := p.cfg.Invoices.GetInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, classify(StepLoadInvoice, req.InvoiceID, err, ErrInvoiceNotFound, ErrInvoiceFetch)
	}
	rec = p.mergeClient(ctx, rec)

	resolved := p.cfg.Resolver.Resolve(tpl.Elements.Slice(), rec)

	page := tpl.Page
	if page.Width <= 0 || page.Height <= 0 {
		page = document.DefaultPage()
	}
	surface, err := p.cfg.Painter.Surface(resolved, page, renderer.SurfaceOptions{Theme: p.cfg.Theme})
	if err != nil {
		return nil, &Error{Step: StepSurface, Kind: ErrRasterization, ID: req.TemplateID, Err: err}
	}
	w, h := surface.Size()
	bitmap, err := p.cfg.Rasterizer.RenderToBitmap(surface, renderer.Region{Width: w, Height: h, PixelRatio: p.cfg.PixelRatio})
	if err != nil {
		return nil, &Error{Step: StepRasterize, Kind: ErrRasterization, ID: req.TemplateID, Err: err}
	}

	name := FileName(p.cfg.Resolver, rec, req.InvoiceID, tpl)
	doc := p.cfg.NewEmbedder(renderer.DocumentMeta{
		Title:   strings.TrimSuffix(name, ".pdf"),
		Subject: tpl.Name,
		Creator: p.cfg.Creator,
	})
	pageIdx := doc.CreatePage(PageWidthMM, PageHeightMM)
	if err := doc.DrawImage(pageIdx, bitmap, Placement(w, h, PageWidthMM, PageHeightMM)); err != nil {
		return nil, &Error{Step: StepEmbed, Kind: ErrEmbed, ID: req.InvoiceID, Err: err}
	}
	data, err := doc.Save()
	if err != nil {
		return nil, &Error{Step: StepEmbed, Kind: ErrEmbed, ID: req.InvoiceID, Err: err}
	}

	log.Printf("[RENDER] template=%s invoice=%s file=%s bytes=%d", req.TemplateID, req.InvoiceID, name, len(data))
	return &Result{PDF: data, FileName: name, Warnings: warnings}, nil
}

func (p *Pipeline) acquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[key]; busy {
		return false
	}
	p.inflight[key] = struct{}{}
	return true
}

func (p *Pipeline) release(key string) {
	p.mu.Lock()
	delete(p.inflight, key)
	p.mu.Unlock()
}

func classify(step Step, id string, err, notFound, fetch error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Step: step, Kind: notFound, ID: id, Err: err}
	}
	return &Error{Step: step, Kind: fetch, ID: id, Err: err}
}

// mergeClient 在发票缺少客户字段且带 client_id 时补齐客户资料。客户读取失败只记录日志。
func (p *Pipeline) mergeClient(ctx context.Context, rec store.Record) store.Record {
	clientID, _ := rec["client_id"].(string)
	if clientID == "" {
		return rec
	}
	r := p.cfg.Resolver
	missing := false
	for _, id := range placeholder.CustomerIDs {
		if v, _ := r.Value(id, rec); v == "" {
			missing = true
			break
		}
	}
	if !missing {
		return rec
	}
	c, err := p.cfg.Invoices.GetClient(ctx, clientID)
	if err != nil {
		log.Printf("[WARN] client %s for invoice: %v", clientID, err)
		return rec
	}
	out := rec.Clone()
	setIfEmpty := func(key, val string) {
		if s, _ := out[key].(string); s == "" && val != "" {
			out[key] = val
		}
	}
	setIfEmpty("customer_name", c.Name)
	setIfEmpty("customer_address", c.Address)
	setIfEmpty("customer_phone", c.Phone)
	return out
}

// Placement 把 imgW×imgH 的图像等比缩放进 pageW×pageH 并居中。
func Placement(imgW, imgH, pageW, pageH float64) renderer.Rect {
	if imgW <= 0 || imgH <= 0 {
		return renderer.Rect{W: pageW, H: pageH}
	}
	scale := math.Min(pageW/imgW, pageH/imgH)
	w, h := imgW*scale, imgH*scale
	return renderer.Rect{X: (pageW - w) / 2, Y: (pageH - h) / 2, W: w, H: h}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// FileName 依次取发票号（与 ph-invoice-no 占位符同一取值规则）、记录中的 id、
// 请求的发票 id、模板名作为文件名，清理后加 .pdf。r 为 nil 时使用默认解析器。
func FileName(r *placeholder.Resolver, rec store.Record, invoiceID string, tpl *document.Template) string {
	if r == nil {
		r = placeholder.NewResolver(placeholder.Options{})
	}
	candidates := []string{scalar(rec["id"]), invoiceID}
	if tpl != nil {
		candidates = append(candidates, tpl.Name)
	}
	base, _ := r.Value("ph-invoice-no", rec)
	base = strings.TrimSpace(base)
	for _, c := range candidates {
		if base != "" {
			break
		}
		base = c
	}
	base = SanitizeFileName(base)
	if base == "" {
		base = "invoice"
	}
	return base + ".pdf"
}

// SanitizeFileName 去掉非法字符并把空白串替换为下划线。
func SanitizeFileName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(s, "_")
	return s
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}
