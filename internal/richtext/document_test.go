package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassifiesOperations(t *testing.T) {
	doc, err := Parse(`[
		{"insert":"Hello "},
		{"insert":"world","attributes":{"bold":true}},
		{"insert":{"image":"data:image/png;base64,AAAA"}},
		{"insert":{"image":"https://cdn.example.com/a.png"}},
		{"insert":{"formula":"e=mc^2"}},
		{"insert":{"image":42}},
		{"retain":5},
		{"delete":2}
	]`)
	require.NoError(t, err)
	require.Equal(t, 8, doc.Len())

	ops := doc.Ops()
	assert.IsType(t, &TextInsert{}, ops[0])
	assert.IsType(t, &TextInsert{}, ops[1])
	assert.IsType(t, &ImageInsert{}, ops[2])
	assert.True(t, ops[2].(*ImageInsert).IsDataURI())
	assert.IsType(t, &ImageInsert{}, ops[3])
	assert.False(t, ops[3].(*ImageInsert).IsDataURI())
	assert.IsType(t, &Other{}, ops[4])
	assert.IsType(t, &Other{}, ops[5])
	assert.IsType(t, &Other{}, ops[6])
	assert.IsType(t, &Other{}, ops[7])
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "null", "[]"} {
		doc, err := Parse(in)
		require.NoError(t, err, "input %q", in)
		assert.Zero(t, doc.Len())
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{
		`plain text body`,
		`[{"insert":"unterminated`,
		`{"delta":[]}`,
		`{"ops":{"insert":"x"}}`,
		`42`,
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidDocument, "input %q", in)
	}
}

func TestParseKeepsNonObjectOperations(t *testing.T) {
	in := `["x",null,42,{"insert":"hi"},[1]]`
	doc, err := Parse(in)
	require.NoError(t, err)
	require.Equal(t, 5, doc.Len())

	for _, i := range []int{0, 1, 2, 4} {
		assert.IsType(t, &Other{}, doc.Ops()[i], "op %d", i)
	}
	assert.IsType(t, &TextInsert{}, doc.Ops()[3])
	assert.Equal(t, in, doc.String())
}

func TestSetSourceKeepsSiblingFields(t *testing.T) {
	doc, err := Parse(`[{"insert":{"image":"data:image/png;base64,AAAA","alt":"<logo>"},"attributes":{"link":"https://a.example/?x=1&y=2"}}]`)
	require.NoError(t, err)

	img := doc.Ops()[0].(*ImageInsert)
	img.SetSource("https://cdn.example.com/news/x.png")

	assert.Equal(t,
		`[{"attributes":{"link":"https://a.example/?x=1&y=2"},"insert":{"alt":"<logo>","image":"https://cdn.example.com/news/x.png"}}]`,
		doc.String())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	doc, err := Parse(`{"ops":[{"insert":"hi\n"}]}`)
	require.NoError(t, err)
	assert.Equal(t, `{"ops":[{"insert":"hi\n"}]}`, doc.String())
}
