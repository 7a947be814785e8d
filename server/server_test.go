package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/editor"
	"github.com/ByLCY/invoicestudio/element"
	"github.com/ByLCY/invoicestudio/pipeline"
	canvasrenderer "github.com/ByLCY/invoicestudio/renderer/canvas"
	"github.com/ByLCY/invoicestudio/store"
)

type fixture struct {
	srv   *Server
	mem   *store.Memory
	tplID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	tpl, err := document.Preset(document.KindMinimal)
	require.NoError(t, err)
	tpl.Page = document.Page{Width: 200, Height: 280}
	require.NoError(t, mem.SaveTemplate(ctx, tpl))
	require.NoError(t, mem.SaveInvoice(ctx, "inv-1", store.Record{"invoice_number": "INV-042", "total": 10.0}))

	r := canvasrenderer.NewRenderer("")
	p, err := pipeline.New(pipeline.Config{
		Templates:   mem,
		Invoices:    mem,
		Painter:     r,
		Rasterizer:  r,
		NewEmbedder: canvasrenderer.NewEmbedder,
	})
	require.NoError(t, err)

	srv := New(Options{Templates: mem, Exporter: p, Painter: r, Rasterizer: r})
	return &fixture{srv: srv, mem: mem, tplID: tpl.ID}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.App().Test(req, fiber.TestConfig{Timeout: 30 * time.Second})
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"alive"}`, string(body))
}

func TestTemplates(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/templates/"+f.tplID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tpl, err := document.Unmarshal(body)
	require.NoError(t, err)
	assert.Equal(t, f.tplID, tpl.ID)

	resp, _ = f.do(t, http.MethodGet, "/templates/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/templates", `{"name":"  ","elements":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/templates", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "elements are required")

	resp, body = f.do(t, http.MethodPost, "/templates", `{"name":"Fresh","elements":[]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created templateSummary
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)

	resp, body = f.do(t, http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []templateSummary
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)
}

func TestImportTemplate(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/templates/import", "template imported {\n rect id r x 10 y 10\n}\n")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = f.do(t, http.MethodPost, "/templates/import", "template broken { text placeholder ph-nope }")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportInvoice(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/invoices/inv-1/pdf?template="+f.tplID+"&zoom=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "INV-042.pdf")
	warning := resp.Header.Get("X-Render-Warning")
	assert.Contains(t, warning, "200%")
	for _, r := range warning {
		require.Less(t, r, rune(0x80), "X-Render-Warning must be ASCII: %q", warning)
	}
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, _ = f.do(t, http.MethodGet, "/invoices/missing/pdf?template="+f.tplID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/invoices/inv-1/pdf", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, statusFor(&pipeline.Error{Kind: pipeline.ErrInvoiceNotFound}))
	assert.Equal(t, fiber.StatusConflict, statusFor(pipeline.ErrInProgress))
	assert.Equal(t, fiber.StatusConflict, statusFor(editor.ErrSaveInProgress))
	assert.Equal(t, fiber.StatusBadRequest, statusFor(&document.ValidationError{Field: "name"}))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(&pipeline.Error{Kind: pipeline.ErrRasterization}))
}

func TestEditorSession(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/sessions", map[string]any{"name": "Draft"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view sessionView
	require.NoError(t, json.Unmarshal(body, &view))
	require.NotEmpty(t, view.ID)
	base := "/sessions/" + view.ID

	resp, body = f.do(t, http.MethodPost, base+"/elements", map[string]any{"type": "Rect"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var el element.Element
	require.NoError(t, json.Unmarshal(body, &el))
	x, y := el.Props.Num(element.KeyX), el.Props.Num(element.KeyY)

	resp, body = f.do(t, http.MethodPost, base+"/events", map[string]any{
		"events": []editor.Event{
			{Kind: editor.PointerDown, X: x + 10, Y: y + 10},
			{Kind: editor.PointerMove, X: x + 30, Y: y + 40},
			{Kind: editor.PointerUp, X: x + 30, Y: y + 40},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "selected", view.State)
	moved, ok := view.Template.Elements.Get(el.ID)
	require.True(t, ok)
	assert.Equal(t, x+20, moved.Props.Num(element.KeyX))
	assert.Equal(t, y+30, moved.Props.Num(element.KeyY))
	assert.Len(t, view.Handles, 5)

	resp, body = f.do(t, http.MethodGet, base+"/preview.png?ratio=0.5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	resp, body = f.do(t, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var saved templateSummary
	require.NoError(t, json.Unmarshal(body, &saved))
	stored, err := f.mem.GetTemplate(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", stored.Name)
	assert.Equal(t, 1, stored.Elements.Len())

	resp, _ = f.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionRejectsTinyGrid(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/sessions", map[string]any{"name": "Draft"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view sessionView
	require.NoError(t, json.Unmarshal(body, &view))
	base := "/sessions/" + view.ID

	resp, body = f.do(t, http.MethodPost, base+"/events", map[string]any{
		"grid": map[string]any{"enabled": true, "size": 1e-9},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = f.do(t, http.MethodPost, base+"/events", map[string]any{
		"grid": map[string]any{"enabled": true, "size": 10},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, editor.Grid{Enabled: true, Size: 10}, view.Grid)
}

func TestSessionSaveValidation(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/sessions", map[string]any{"preset": "classic"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view sessionView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.NotZero(t, view.Template.Elements.Len())

	resp, _ = f.do(t, http.MethodPost, "/sessions/"+view.ID+"/save", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/sessions", map[string]any{"preset": "fancy"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionsPrune(t *testing.T) {
	s := NewSessions()
	id := s.Open(document.New("a"))
	assert.Zero(t, s.Prune(time.Hour))
	assert.Equal(t, 1, s.Prune(-time.Second))
	assert.ErrorIs(t, s.With(id, func(*editor.Editor) error { return nil }), ErrSessionNotFound)
}
