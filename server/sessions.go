package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/editor"
	"github.com/ByLCY/invoicestudio/element"
	"github.com/ByLCY/invoicestudio/renderer"
)

// ErrSessionNotFound 表示编辑会话不存在或已关闭。
var ErrSessionNotFound = errors.New("session not found")

// session 串行化对同一个编辑器的访问。
type session struct {
	mu      sync.Mutex
	ed      *editor.Editor
	touched time.Time
}

// Sessions 管理进行中的编辑会话。
type Sessions struct {
	mu    sync.RWMutex
	items map[string]*session
}

// NewSessions 创建空的会话表。
func NewSessions() *Sessions {
	return &Sessions{items: make(map[string]*session)}
}

// Open 为模板创建新会话并返回会话 id。
func (s *Sessions) Open(t *document.Template) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.items[id] = &session{ed: editor.New(t), touched: time.Now()}
	s.mu.Unlock()
	return id
}

// Close 删除会话。
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// With 在持有会话锁的情况下执行 fn。
func (s *Sessions) With(id string, fn func(ed *editor.Editor) error) error {
	s.mu.RLock()
	sess, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touched = time.Now()
	return fn(sess.ed)
}

// Prune 关闭超过 maxIdle 未访问的会话，返回关闭数量。
func (s *Sessions) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.items {
		sess.mu.Lock()
		idle := sess.touched.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// ============================================================
// Session Handlers
// ============================================================

type sessionView struct {
	ID       string             `json:"id"`
	State    string             `json:"state"`
	Selected string             `json:"selected"`
	Zoom     float64            `json:"zoom"`
	Grid     editor.Grid        `json:"grid"`
	Handles  []editor.Handle    `json:"handles"`
	Template *document.Template `json:"template"`
}

func viewOf(id string, ed *editor.Editor) sessionView {
	tpl := ed.Document()
	tpl.Elements = document.MustElements(ed.Elements()...)
	return sessionView{
		ID:       id,
		State:    ed.State().String(),
		Selected: ed.Selected(),
		Zoom:     ed.Zoom(),
		Grid:     ed.Grid(),
		Handles:  ed.Handles(),
		Template: tpl,
	}
}

type openRequest struct {
	TemplateID string        `json:"template_id"`
	Preset     document.Kind `json:"preset"`
	Name       string        `json:"name"`
}

func (s *Server) createSession(c fiber.Ctx) error {
	var req openRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON payload"})
		}
	}

	var tpl *document.Template
	switch {
	case req.TemplateID != "":
		t, err := s.opts.Templates.GetTemplate(c.Context(), req.TemplateID)
		if err != nil {
			return fail(c, err)
		}
		tpl = t
	case req.Preset != "":
		t, err := document.Preset(req.Preset)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		tpl = t
	default:
		tpl = document.New(req.Name)
	}

	id := s.sessions.Open(tpl)
	var view sessionView
	_ = s.sessions.With(id, func(ed *editor.Editor) error {
		view = viewOf(id, ed)
		return nil
	})
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (s *Server) getSession(c fiber.Ctx) error {
	id := c.Params("id")
	var view sessionView
	err := s.sessions.With(id, func(ed *editor.Editor) error {
		view = viewOf(id, ed)
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

func (s *Server) deleteSession(c fiber.Ctx) error {
	if !s.sessions.Close(c.Params("id")) {
		return fail(c, ErrSessionNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type eventsRequest struct {
	Zoom   float64        `json:"zoom"`
	Grid   *editor.Grid   `json:"grid"`
	Events []editor.Event `json:"events"`
}

func (s *Server) sessionEvents(c fiber.Ctx) error {
	var req eventsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON payload"})
	}
	id := c.Params("id")
	var view sessionView
	err := s.sessions.With(id, func(ed *editor.Editor) error {
		if req.Grid != nil {
			if err := ed.SetGrid(*req.Grid); err != nil {
				return err
			}
		}
		if req.Zoom > 0 {
			ed.SetZoom(req.Zoom)
		}
		for _, ev := range req.Events {
			ed.Pointer(ev)
		}
		view = viewOf(id, ed)
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

type insertRequest struct {
	Type element.Type `json:"type"`
	Role element.Role `json:"role"`
}

func (s *Server) insertElement(c fiber.Ctx) error {
	var req insertRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON payload"})
	}
	if !req.Type.Known() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown element type"})
	}
	var el element.Element
	err := s.sessions.With(c.Params("id"), func(ed *editor.Editor) error {
		var err error
		el, err = ed.Insert(req.Type, req.Role)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(el)
}

// sessionPreview 输出编辑画布的 PNG 预览，包含网格与选中框。
func (s *Server) sessionPreview(c fiber.Ctx) error {
	ratio := 1.0
	if raw := c.Query("ratio"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 || r > 4 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid ratio"})
		}
		ratio = r
	}
	var png []byte
	err := s.sessions.With(c.Params("id"), func(ed *editor.Editor) error {
		surface, err := s.opts.Painter.Surface(ed.Elements(), ed.Page(), renderer.SurfaceOptions{
			Theme:     s.opts.Theme,
			GridLines: ed.GridLines(),
			Selected:  ed.Selected(),
		})
		if err != nil {
			return err
		}
		w, h := surface.Size()
		png, err = s.opts.Rasterizer.RenderToBitmap(surface, renderer.Region{Width: w, Height: h, PixelRatio: ratio})
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

type saveRequest struct {
	Name        *string `json:"name"`
	Description string  `json:"description"`
}

func (s *Server) saveSession(c fiber.Ctx) error {
	var req saveRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON payload"})
		}
	}
	var saved *document.Template
	err := s.sessions.With(c.Params("id"), func(ed *editor.Editor) error {
		if req.Name != nil {
			ed.Rename(*req.Name, req.Description)
		}
		if err := ed.Save(c.Context(), s.opts.Templates); err != nil {
			return err
		}
		saved = ed.Document()
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(summarize(saved))
}
