package pipeline

import (
	"errors"
	"fmt"
)

// 渲染流水线的错误分类，配合 errors.Is 使用。
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrTemplateFetch    = errors.New("template fetch failed")
	ErrInvoiceFetch     = errors.New("invoice fetch failed")
	ErrRasterization    = errors.New("rasterization failed")
	ErrEmbed            = errors.New("pdf embedding failed")
	ErrInProgress       = errors.New("render already in progress")
)

// Step 标识出错的流水线步骤。
type Step string

const (
	StepLoadTemplate Step = "load-template"
	StepLoadInvoice  Step = "load-invoice"
	StepSurface      Step = "surface"
	StepRasterize    Step = "rasterize"
	StepEmbed        Step = "embed"
)

// Error 记录出错的步骤、分类与相关 id。
type Error struct {
	Step Step
	Kind error
	ID   string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Step, e.Kind)
	if e.ID != "" {
		msg += " (" + e.ID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
