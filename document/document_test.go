package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/invoicestudio/element"
)

func sampleTemplate(t *testing.T) *Template {
	t.Helper()
	rect := element.New(element.TypeRect, "", 10, 20)
	heading := element.New(element.TypeText, element.RoleHeading, 40, 40)
	heading.Props[element.KeyPlaceholder] = "ph-invoice-no"
	heading.Props["customKey"] = map[string]any{"nested": []any{1.0, "two", true}}
	odd := element.Element{ID: "odd", Type: "Hexagon", Props: element.Props{"sides": 6.0}}

	els, err := NewElements(rect, heading, odd)
	require.NoError(t, err)
	tpl := New("Quarterly")
	tpl.Description = "with unknown bits"
	tpl.Elements = els
	return tpl
}

func TestRoundTrip(t *testing.T) {
	tpl := sampleTemplate(t)
	data, err := Marshal(tpl)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, tpl, got)
	assert.Equal(t, []string{tpl.Elements.At(0).ID, tpl.Elements.At(1).ID, "odd"}, got.Elements.IDs())

	again, err := Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestRoundTripPresets(t *testing.T) {
	for _, p := range Presets() {
		data, err := Marshal(p)
		require.NoError(t, err)
		got, err := Unmarshal(data)
		require.NoError(t, err, p.Name)
		assert.Equal(t, p, got, p.Name)
		assert.NoError(t, Validate(got))
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":      `{"name": "x", "elements": [`,
		"missing elements":  `{"name": "x"}`,
		"null elements":     `{"name": "x", "elements": null}`,
		"elements object":   `{"name": "x", "elements": {"a": 1}}`,
		"duplicate element": `{"name": "x", "elements": [{"id":"a","type":"Rect","props":{}},{"id":"a","type":"Rect","props":{}}]}`,
	}
	for name, input := range cases {
		_, err := Unmarshal([]byte(input))
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrMalformed), name)
		var me *MalformedError
		assert.True(t, errors.As(err, &me), name)
	}
}

func TestUnmarshalDefaults(t *testing.T) {
	got, err := Unmarshal([]byte(`{"elements": []}`))
	require.NoError(t, err)
	assert.Equal(t, "", got.Name)
	assert.Equal(t, "", got.Description)
	assert.Equal(t, DefaultPage(), got.Page)
	assert.Equal(t, 0, got.Elements.Len())
}

func TestValidate(t *testing.T) {
	tpl := New("   ")
	err := Validate(tpl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)

	tpl.Name = "ok"
	assert.NoError(t, Validate(tpl))

	tpl.Kind = "fancy"
	assert.Error(t, Validate(tpl))
}

func TestElementsReplaceKeepsOrder(t *testing.T) {
	tpl := sampleTemplate(t)
	before := tpl.Elements.Slice()
	target := before[1]

	moved := element.ApplyTranslation(target, 5, 5)
	require.True(t, tpl.Elements.Replace(target.ID, moved))
	assert.False(t, tpl.Elements.Replace("missing", moved))

	after := tpl.Elements.Slice()
	require.Len(t, after, len(before))
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])
	assert.Equal(t, 45.0, after[1].Props.Num(element.KeyX))
	assert.Equal(t, 1, tpl.Elements.Index(target.ID))
}

func TestElementsRejectsBadIDs(t *testing.T) {
	var els Elements
	assert.Equal(t, 0, els.Len())
	assert.Equal(t, -1, els.Index("a"))
	_, ok := els.Get("a")
	assert.False(t, ok)

	require.NoError(t, els.Add(element.Element{ID: "a", Type: element.TypeRect}))
	require.Error(t, els.Add(element.Element{Type: element.TypeRect}))
	require.Error(t, els.Add(element.Element{ID: "a", Type: element.TypeCircle}))

	got, ok := els.Get("a")
	require.True(t, ok)
	assert.Equal(t, element.TypeRect, got.Type, "重复 id 不应覆盖原元素")
	assert.Equal(t, []string{"a"}, els.IDs())

	_, err := NewElements(element.Element{ID: "x"}, element.Element{ID: "x"})
	assert.Error(t, err)
}

func TestCloneIsolated(t *testing.T) {
	tpl := sampleTemplate(t)
	cp := tpl.Clone()
	first := cp.Elements.At(0)
	first.Props.SetFloat(element.KeyX, 999)
	assert.Equal(t, 10.0, tpl.Elements.At(0).Props.Num(element.KeyX))
}

func TestPresetPlaceholders(t *testing.T) {
	p, err := Preset(KindClassic)
	require.NoError(t, err)
	assert.Contains(t, p.Placeholders(), "ph-invoice-no")
	assert.Contains(t, p.Placeholders(), "ph-total")

	_, err = Preset(KindCustom)
	assert.Error(t, err)
}

func TestPageExtend(t *testing.T) {
	p := DefaultPage()
	assert.Equal(t, DefaultPageHeight, p.Extend(100).Height)
	assert.Equal(t, 2000.0, p.Extend(2000).Height)
}
