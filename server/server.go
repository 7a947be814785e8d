// Package server 通过 HTTP 暴露模板管理、发票导出与编辑会话。
package server

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/dsl"
	"github.com/ByLCY/invoicestudio/editor"
	"github.com/ByLCY/invoicestudio/pipeline"
	"github.com/ByLCY/invoicestudio/renderer"
	"github.com/ByLCY/invoicestudio/store"
)

// Templates 是服务使用的模板存储。
type Templates interface {
	GetTemplate(ctx context.Context, id string) (*document.Template, error)
	SaveTemplate(ctx context.Context, t *document.Template) error
	ListTemplates(ctx context.Context) ([]*document.Template, error)
}

// Exporter 渲染发票 PDF，通常是 *pipeline.Pipeline。
type Exporter interface {
	Render(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Options 组装服务依赖。
type Options struct {
	AppName    string
	Templates  Templates
	Exporter   Exporter
	Painter    renderer.Painter
	Rasterizer renderer.Rasterizer
	Theme      renderer.Theme
}

// Server 持有 fiber 应用与编辑会话。
type Server struct {
	app      *fiber.App
	opts     Options
	sessions *Sessions
}

// New 创建服务并注册全部路由。
func New(opts Options) *Server {
	if opts.AppName == "" {
		opts.AppName = "invoicestudio"
	}
	if opts.Theme.Background == "" {
		opts.Theme = renderer.DefaultTheme()
	}
	s := &Server{
		app:      fiber.New(fiber.Config{AppName: opts.AppName}),
		opts:     opts,
		sessions: NewSessions(),
	}
	s.routes()
	return s
}

// App 返回底层 fiber 应用，测试中配合 app.Test 使用。
func (s *Server) App() *fiber.App { return s.app }

// Sessions 返回编辑会话表。
func (s *Server) Sessions() *Sessions { return s.sessions }

// Listen 启动 HTTP 服务。
func (s *Server) Listen(addr string) error {
	log.Printf("[INFO] listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown 关闭 HTTP 服务。
func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) routes() {
	app := s.app

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(Logger())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Template Routes
	// ============================================================

	app.Get("/presets", s.listPresets)
	app.Get("/templates", s.listTemplates)
	app.Get("/templates/:id", s.getTemplate)
	app.Post("/templates", s.createTemplate)
	app.Post("/templates/import", s.importTemplate)

	// ============================================================
	// Export Routes
	// ============================================================

	app.Get("/invoices/:id/pdf", s.exportInvoice)

	// ============================================================
	// Editor Session Routes
	// ============================================================

	app.Post("/sessions", s.createSession)
	app.Get("/sessions/:id", s.getSession)
	app.Delete("/sessions/:id", s.deleteSession)
	app.Post("/sessions/:id/events", s.sessionEvents)
	app.Post("/sessions/:id/elements", s.insertElement)
	app.Get("/sessions/:id/preview.png", s.sessionPreview)
	app.Post("/sessions/:id/save", s.saveSession)
}

// statusFor 把领域错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrTemplateNotFound),
		errors.Is(err, pipeline.ErrInvoiceNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrInProgress),
		errors.Is(err, editor.ErrSaveInProgress):
		return fiber.StatusConflict
	case errors.Is(err, document.ErrValidation),
		errors.Is(err, document.ErrMalformed),
		errors.Is(err, dsl.ErrCompile),
		errors.Is(err, editor.ErrInvalidGrid):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("[WARN] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
