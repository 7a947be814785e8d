package canvasrenderer

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/tdewolff/canvas"
)

var namedColors = map[string]color.RGBA{
	"black": canvas.Black,
	"white": canvas.White,
	"red":   canvas.Red,
	"green": canvas.Green,
	"blue":  canvas.Blue,
	"gray":  canvas.Gray,
	"grey":  canvas.Gray,
}

// parseColor 解析 #rgb/#rrggbb/#rrggbbaa、rgb()/rgba() 与少量颜色名。
// 空串、transparent 与 none 返回 ok=false，表示不绘制。
func parseColor(s string) (color.RGBA, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "transparent", "none":
		return color.RGBA{}, false
	}
	if c, ok := namedColors[v]; ok {
		return c, true
	}
	if strings.HasPrefix(v, "#") {
		switch len(v) {
		case 4, 5, 7, 9:
			if _, err := strconv.ParseUint(v[1:], 16, 32); err != nil {
				return color.RGBA{}, false
			}
			return canvas.Hex(v), true
		}
		return color.RGBA{}, false
	}
	if strings.HasPrefix(v, "rgb") {
		open := strings.IndexByte(v, '(')
		end := strings.LastIndexByte(v, ')')
		if open < 0 || end < open {
			return color.RGBA{}, false
		}
		parts := strings.Split(v[open+1:end], ",")
		if len(parts) != 3 && len(parts) != 4 {
			return color.RGBA{}, false
		}
		var ch [4]float64
		ch[3] = 1
		for i, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return color.RGBA{}, false
			}
			if i < 3 {
				f /= 255
			}
			ch[i] = clamp01(f)
		}
		return canvas.RGBA(ch[0], ch[1], ch[2], ch[3]), true
	}
	return color.RGBA{}, false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func toRGBA(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
