package document

import (
	"fmt"

	"github.com/ByLCY/invoicestudio/element"
)

// Preset 返回内置模板。每次调用都返回新的副本。
func Preset(kind Kind) (*Template, error) {
	switch kind {
	case KindClassic:
		return classic(), nil
	case KindModern:
		return modern(), nil
	case KindMinimal:
		return minimal(), nil
	default:
		return nil, fmt.Errorf("没有内置模板: %q", kind)
	}
}

// Presets 返回全部内置模板。
func Presets() []*Template {
	return []*Template{classic(), modern(), minimal()}
}

func text(id string, x, y, width, size float64, style, content, ph string) element.Element {
	p := element.Props{
		element.KeyX:          x,
		element.KeyY:          y,
		element.KeyRotation:   0.0,
		element.KeyWidth:      width,
		element.KeyFontSize:   size,
		element.KeyFontStyle:  style,
		element.KeyFontFamily: "sans",
		element.KeyFill:       "#111827",
		element.KeyText:       content,
	}
	if ph != "" {
		p[element.KeyPlaceholder] = ph
	}
	return element.Element{ID: id, Type: element.TypeText, Props: p}
}

func rect(id string, x, y, w, h float64, fill string) element.Element {
	return element.Element{ID: id, Type: element.TypeRect, Props: element.Props{
		element.KeyX: x, element.KeyY: y, element.KeyRotation: 0.0,
		element.KeyWidth: w, element.KeyHeight: h,
		element.KeyFill: fill, element.KeyStrokeWidth: 0.0,
	}}
}

func line(id string, x, y, length float64, dotted bool) element.Element {
	el := element.Element{ID: id, Type: element.TypeLine, Props: element.Props{
		element.KeyX: x, element.KeyY: y, element.KeyRotation: 0.0,
		element.KeyStroke: "#9ca3af", element.KeyStrokeWidth: 1.0,
	}}
	el.Props.SetPoints([]float64{0, 0, length, 0})
	if dotted {
		el.Type = element.TypeDottedLine
		el.Props[element.KeyDash] = []any{4.0, 4.0}
	}
	return el
}

// body 是三套预设共用的发票主体：抬头、客户、单行明细与合计。
func body(prefix string, top float64) []element.Element {
	id := func(s string) string { return prefix + "-" + s }
	return []element.Element{
		text(id("bill-to"), 60, top, 200, 12, "bold", "Bill To", ""),
		text(id("customer-name"), 60, top+20, 300, 14, "normal", "Customer", "ph-customer-name"),
		text(id("customer-address"), 60, top+40, 300, 12, "normal", "Address", "ph-customer-address"),
		text(id("customer-phone"), 60, top+58, 300, 12, "normal", "Phone", "ph-customer-phone"),
		text(id("issue-label"), 500, top, 100, 12, "bold", "Issued", ""),
		text(id("issue-date"), 610, top, 124, 12, "normal", "1/1/2025", "ph-issue-date"),
		text(id("due-label"), 500, top+20, 100, 12, "bold", "Due", ""),
		text(id("due-date"), 610, top+20, 124, 12, "normal", "1/31/2025", "ph-due-date"),
		line(id("items-rule"), 60, top+110, 674, false),
		text(id("item-head"), 60, top+120, 300, 12, "bold", "Description", ""),
		text(id("qty-head"), 400, top+120, 80, 12, "bold", "Qty", ""),
		text(id("price-head"), 490, top+120, 110, 12, "bold", "Unit price", ""),
		text(id("amount-head"), 610, top+120, 124, 12, "bold", "Amount", ""),
		text(id("item-description"), 60, top+145, 320, 12, "normal", "Item", "ph-item-description"),
		text(id("item-quantity"), 400, top+145, 80, 12, "normal", "1", "ph-item-quantity"),
		text(id("item-unit-price"), 490, top+145, 110, 12, "normal", "0.00", "ph-item-unit-price"),
		text(id("item-amount"), 610, top+145, 124, 12, "normal", "0.00", "ph-item-amount"),
		line(id("totals-rule"), 490, top+190, 244, true),
		text(id("subtotal-label"), 490, top+200, 110, 12, "normal", "Subtotal", ""),
		text(id("subtotal"), 610, top+200, 124, 12, "normal", "0.00", "ph-subtotal"),
		text(id("total-label"), 490, top+222, 110, 14, "bold", "Total", ""),
		text(id("total"), 610, top+222, 124, 14, "bold", "0.00", "ph-total"),
	}
}

func classic() *Template {
	els := []element.Element{
		text("classic-title", 60, 60, 300, 32, "bold", "INVOICE", ""),
		text("classic-number", 500, 70, 234, 14, "normal", "INV-0000", "ph-invoice-no"),
		text("classic-company", 60, 110, 320, 14, "bold", "Company", "ph-company-name"),
		text("classic-company-address", 60, 130, 320, 12, "normal", "Address", "ph-company-address"),
		text("classic-company-phone", 60, 148, 320, 12, "normal", "Phone", "ph-company-phone"),
		line("classic-rule", 60, 180, 674, false),
	}
	els = append(els, body("classic", 200)...)
	return &Template{
		ID:          "preset-classic",
		Name:        "Classic",
		Description: "传统发票版式",
		Kind:        KindClassic,
		Page:        DefaultPage(),
		Elements:    MustElements(els...),
	}
}

func modern() *Template {
	els := []element.Element{
		rect("modern-band", 0, 0, DefaultPageWidth, 140, "#1e3a8a"),
		text("modern-company", 60, 40, 400, 28, "bold", "Company", "ph-company-name"),
		text("modern-number", 540, 50, 194, 14, "normal", "INV-0000", "ph-invoice-no"),
		text("modern-company-address", 60, 84, 400, 12, "normal", "Address", "ph-company-address"),
	}
	for _, el := range els[1:] {
		el.Props[element.KeyFill] = "#ffffff"
	}
	accent := element.Element{ID: "modern-accent", Type: element.TypeCircle, Props: element.Props{
		element.KeyX: 720.0, element.KeyY: 1060.0, element.KeyRotation: 0.0,
		element.KeyRadius: 30.0, element.KeyFill: "#93c5fd", element.KeyStrokeWidth: 0.0,
	}}
	els = append(els, body("modern", 180)...)
	els = append(els, accent)
	return &Template{
		ID:          "preset-modern",
		Name:        "Modern",
		Description: "带色带的现代版式",
		Kind:        KindModern,
		Page:        DefaultPage(),
		Elements:    MustElements(els...),
	}
}

func minimal() *Template {
	els := []element.Element{
		text("minimal-number", 60, 60, 300, 20, "bold", "INV-0000", "ph-invoice-no"),
		text("minimal-company", 500, 60, 234, 12, "normal", "Company", "ph-company-name"),
	}
	els = append(els, body("minimal", 140)...)
	return &Template{
		ID:          "preset-minimal",
		Name:        "Minimal",
		Description: "极简版式",
		Kind:        KindMinimal,
		Page:        DefaultPage(),
		Elements:    MustElements(els...),
	}
}
