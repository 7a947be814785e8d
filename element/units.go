package element

import (
	"strconv"
	"strings"
)

// Layout units on the canvas are CSS pixels at 96 DPI; the renderer works in millimeters.

// Unit represents the unit of a length value written in an imported template.
type Unit int

const (
	UnitNone Unit = iota // unit-less, treated as layout pixels
	UnitPX               // CSS pixels (96 DPI)
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between px, mm and pt.
const (
	PxToMm = 25.4 / 96.0
	MmToPx = 96.0 / 25.4
	PtToMm = 25.4 / 72.0
	MmToPt = 72.0 / 25.4
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts the length to millimeters.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value * PxToMm
	}
}

// ToPX converts the length to layout pixels.
func (l Length) ToPX() float64 {
	if l.Unit == UnitPX || l.Unit == UnitNone {
		return l.Value
	}
	return l.ToMM() * MmToPx
}

// ParseLength parses a length string such as "12", "12px", "10mm" or "9pt".
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}
