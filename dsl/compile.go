package dsl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/invoicestudio/binding"
	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/element"
	"github.com/ByLCY/invoicestudio/placeholder"
)

// ErrCompile 是所有编译错误的哨兵值。
var ErrCompile = errors.New("dsl: compile failed")

// CompileError 携带出错位置。
type CompileError struct {
	Pos lexer.Position
	Msg string
}

func (e *CompileError) Error() string {
	if e.Pos.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

func (e *CompileError) Unwrap() error { return ErrCompile }

func errorf(pos lexer.Position, format string, args ...any) error {
	return &CompileError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

var elementKeywords = map[string]element.Type{
	"line":         element.TypeLine,
	"dotted-line":  element.TypeDottedLine,
	"rect":         element.TypeRect,
	"rounded-rect": element.TypeRoundedRect,
	"circle":       element.TypeCircle,
	"triangle":     element.TypeTriangle,
	"pentagon":     element.TypePentagon,
	"star":         element.TypeStar,
	"text":         element.TypeText,
}

// 列表类属性以空格分隔的字符串书写，例如 points "0 0 200 0"。
var listKeys = map[string]bool{element.KeyPoints: true, element.KeyDash: true}

// Import 解析并编译模板文本。
func Import(r io.Reader, vars map[string]any) (*document.Template, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析模板失败: %w", ErrCompile, err)
	}
	return CompileWith(doc, vars)
}

// Compile 把语法树编译为模板。
func Compile(doc *Document) (*document.Template, error) {
	return CompileWith(doc, nil)
}

// CompileWith 在编译时把 vars 代入描述与文本内容中的 ${path}。
func CompileWith(doc *Document, vars map[string]any) (*document.Template, error) {
	if doc == nil || doc.Body == nil {
		return nil, errorf(lexer.Position{}, "空模板")
	}
	name := doc.Name
	if doc.Title != nil {
		name = string(*doc.Title)
	}
	tpl := document.New(name)

	for _, st := range doc.Body.Statements {
		switch {
		case st.Assignment != nil:
			if err := applyMeta(tpl, st.Assignment, vars); err != nil {
				return nil, err
			}
		case st.Command != nil && st.Command.Name == "page":
			page, err := compilePage(st.Command)
			if err != nil {
				return nil, err
			}
			tpl.Page = page
		case st.Command != nil:
			el, err := compileElement(st.Command, vars)
			if err != nil {
				return nil, err
			}
			if err := tpl.Elements.Add(el); err != nil {
				return nil, errorf(st.Command.Pos, "%v", err)
			}
		default:
			return nil, errorf(doc.Pos, "模板顶层不允许出现文本")
		}
	}

	if err := document.Validate(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func applyMeta(tpl *document.Template, a *Assignment, vars map[string]any) error {
	v := valueString(a.Value)
	switch a.Key {
	case "name":
		tpl.Name = v
	case "description":
		tpl.Description = binding.Interpolate(v, vars)
	case "kind":
		k := document.Kind(v)
		if !k.Known() {
			return errorf(a.Pos, "未知模板类型 %q", v)
		}
		tpl.Kind = k
	default:
		return errorf(a.Pos, "未知模板属性 %q", a.Key)
	}
	return nil
}

// compilePage 接受 `page A4` 或 `page <宽> <高>`，长度可带单位。
func compilePage(cmd *Command) (document.Page, error) {
	if len(cmd.Args) == 1 && strings.EqualFold(cmd.Args[0].Value, "A4") {
		return document.DefaultPage(), nil
	}
	if len(cmd.Args) != 2 {
		return document.Page{}, errorf(cmd.Pos, "page 需要 A4 或宽高两个参数")
	}
	w, err := lengthArg(cmd.Args[0])
	if err != nil {
		return document.Page{}, err
	}
	h, err := lengthArg(cmd.Args[1])
	if err != nil {
		return document.Page{}, err
	}
	return document.Page{Width: w, Height: h}, nil
}

func compileElement(cmd *Command, vars map[string]any) (element.Element, error) {
	typ, ok := elementKeywords[cmd.Name]
	if !ok {
		return element.Element{}, errorf(cmd.Pos, "未知指令 %q", cmd.Name)
	}
	args := cmd.Args
	var role element.Role
	if typ == element.TypeText && len(args) > 0 && args[0].Type == "Ident" {
		switch r := element.Role(args[0].Value); r {
		case element.RoleHeading, element.RoleSubheading, element.RoleBody:
			role = r
			args = args[1:]
		}
	}
	el := element.New(typ, role, 0, 0)

	for i := 0; i < len(args); i++ {
		key := args[i]
		if key.Type != "Ident" {
			return element.Element{}, errorf(key.Pos, "期望属性名，得到 %q", key.Raw)
		}
		if i+1 >= len(args) {
			return element.Element{}, errorf(key.Pos, "属性 %s 缺少取值", key.Value)
		}
		i++
		val := args[i]
		negative := false
		if val.Type == "Symbol" && val.Value == "-" && i+1 < len(args) && args[i+1].Type == "Number" {
			negative = true
			i++
			val = args[i]
		}
		if err := setProp(&el, propKey(key.Value), val, negative); err != nil {
			return element.Element{}, err
		}
	}

	if cmd.Block != nil {
		var lines []string
		for _, st := range cmd.Block.Statements {
			switch {
			case st.Text != nil && typ == element.TypeText:
				lines = append(lines, binding.Interpolate(string(st.Text.Value), vars))
			case st.Assignment != nil:
				if err := setValue(&el, propKey(st.Assignment.Key), st.Assignment.Value, st.Assignment.Pos); err != nil {
					return element.Element{}, err
				}
			default:
				return element.Element{}, errorf(cmd.Pos, "%s 块内只允许属性赋值", cmd.Name)
			}
		}
		if len(lines) > 0 {
			el.Props.SetStr(element.KeyText, strings.Join(lines, "\n"))
		}
	}
	return el, nil
}

// propKey 把 font-size 之类的写法转换为属性名 fontSize。
func propKey(name string) string {
	switch name {
	case "placeholder":
		return element.KeyPlaceholder
	case "font":
		return element.KeyFontFamily
	case "style":
		return element.KeyFontStyle
	}
	parts := strings.Split(name, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func setProp(el *element.Element, key string, val *Lexeme, negative bool) error {
	switch val.Type {
	case "Number":
		n, err := lengthArg(val)
		if err != nil {
			return err
		}
		if negative {
			n = -n
		}
		return assign(el, key, n, val.Pos)
	case "String", "Color", "Ident":
		return assign(el, key, val.Value, val.Pos)
	default:
		return errorf(val.Pos, "属性 %s 的取值 %q 无效", key, val.Raw)
	}
}

func setValue(el *element.Element, key string, v *Value, pos lexer.Position) error {
	if v == nil {
		return errorf(pos, "属性 %s 缺少取值", key)
	}
	if v.Number != nil {
		l, ok := element.ParseLength(*v.Number)
		if !ok {
			return errorf(pos, "无效数值 %q", *v.Number)
		}
		return assign(el, key, l.ToPX(), pos)
	}
	if v.Array != nil {
		var nums []string
		for _, item := range v.Array.Values {
			nums = append(nums, valueString(item))
		}
		return assign(el, key, strings.Join(nums, " "), pos)
	}
	return assign(el, key, valueString(v), pos)
}

func assign(el *element.Element, key string, v any, pos lexer.Position) error {
	switch key {
	case "id":
		s, ok := v.(string)
		if !ok || s == "" {
			return errorf(pos, "id 必须是非空字符串")
		}
		el.ID = s
		return nil
	case element.KeyPlaceholder:
		s, _ := v.(string)
		if !placeholder.Known(s) {
			return errorf(pos, "未知占位符 %q", s)
		}
		el.Props.SetStr(key, s)
		return nil
	}
	if listKeys[key] {
		s, ok := v.(string)
		if !ok {
			return errorf(pos, "%s 需要以空格分隔的数字列表", key)
		}
		nums, err := parseList(s)
		if err != nil {
			return errorf(pos, "%s: %v", key, err)
		}
		if key == element.KeyPoints {
			el.Props.SetPoints(nums)
			return nil
		}
		dash := make([]any, len(nums))
		for i, n := range nums {
			dash[i] = n
		}
		el.Props[key] = dash
		return nil
	}
	switch val := v.(type) {
	case float64:
		el.Props.SetFloat(key, val)
	case string:
		el.Props.SetStr(key, val)
	}
	return nil
}

func parseList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("无效数字 %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

func lengthArg(l *Lexeme) (float64, error) {
	if l.Type != "Number" {
		return 0, errorf(l.Pos, "期望数值，得到 %q", l.Raw)
	}
	v, ok := element.ParseLength(l.Value)
	if !ok {
		return 0, errorf(l.Pos, "无效长度 %q", l.Value)
	}
	return v.ToPX(), nil
}

func valueString(v *Value) string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		parts := make([]string, 0, len(v.Expr.Parts))
		for _, p := range v.Expr.Parts {
			parts = append(parts, p.Value)
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}
