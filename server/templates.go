package server

import (
	"bytes"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/dsl"
	"github.com/ByLCY/invoicestudio/pipeline"
)

// ============================================================
// Template Handlers
// ============================================================

type templateSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Kind        document.Kind `json:"kind"`
	Elements    int           `json:"elements"`
}

func summarize(t *document.Template) templateSummary {
	return templateSummary{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Kind:        t.Kind,
		Elements:    t.Elements.Len(),
	}
}

func (s *Server) listPresets(c fiber.Ctx) error {
	presets := document.Presets()
	out := make([]templateSummary, 0, len(presets))
	for _, p := range presets {
		out = append(out, summarize(p))
	}
	return c.JSON(out)
}

func (s *Server) listTemplates(c fiber.Ctx) error {
	list, err := s.opts.Templates.ListTemplates(c.Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]templateSummary, 0, len(list))
	for _, t := range list {
		out = append(out, summarize(t))
	}
	return c.JSON(out)
}

func (s *Server) getTemplate(c fiber.Ctx) error {
	tpl, err := s.opts.Templates.GetTemplate(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	data, err := document.Marshal(tpl)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (s *Server) createTemplate(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body required"})
	}
	tpl, err := document.Unmarshal(c.Body())
	if err != nil {
		return fail(c, err)
	}
	return s.saveTemplate(c, tpl)
}

// importTemplate 接受纯文本模板描述。
func (s *Server) importTemplate(c fiber.Ctx) error {
	tpl, err := dsl.Import(bytes.NewReader(c.Body()), nil)
	if err != nil {
		return fail(c, err)
	}
	return s.saveTemplate(c, tpl)
}

func (s *Server) saveTemplate(c fiber.Ctx, tpl *document.Template) error {
	if err := s.opts.Templates.SaveTemplate(c.Context(), tpl); err != nil {
		return fail(c, err)
	}
	log.Printf("[INFO] template saved: %s (%s)", tpl.ID, tpl.Name)
	return c.Status(fiber.StatusCreated).JSON(summarize(tpl))
}

// ============================================================
// Export Handler
// ============================================================

func (s *Server) exportInvoice(c fiber.Ctx) error {
	templateID := c.Query("template")
	if templateID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "template query parameter required"})
	}
	zoom := 1.0
	if raw := c.Query("zoom"); raw != "" {
		z, err := strconv.ParseFloat(raw, 64)
		if err != nil || z <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid zoom"})
		}
		zoom = z
	}

	res, err := s.opts.Exporter.Render(c.Context(), pipeline.Request{
		TemplateID: templateID,
		InvoiceID:  c.Params("id"),
		ViewZoom:   zoom,
	})
	if err != nil {
		return fail(c, err)
	}
	for _, w := range res.Warnings {
		log.Printf("[WARN] export %s: %s", c.Params("id"), w)
	}
	if zoom != 1 {
		// 响应头只放 ASCII，中文提示留在日志里
		c.Set("X-Render-Warning", fmt.Sprintf("view zoom %.0f%% ignored; exported at 100%%", zoom*100))
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+res.FileName+`"`)
	return c.Send(res.PDF)
}
