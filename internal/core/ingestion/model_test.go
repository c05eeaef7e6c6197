package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Text(t *testing.T) {
	doc := &Document{Pages: []Page{{Number: 0, Text: "first"}, {Number: 1, Text: "second"}}}
	assert.Equal(t, "first second", doc.Text())
	assert.Empty(t, (&Document{}).Text())
}

func TestDocument_PageAt(t *testing.T) {
	doc := &Document{Pages: []Page{
		{Number: 0, Text: strings.Repeat("a", 10)},
		{Number: 1, Text: strings.Repeat("b", 5)},
		{Number: 2, Text: "ああ"},
	}}

	tests := []struct {
		offset int
		want   int
	}{
		{0, 0},
		{9, 0},
		{10, 0}, // 区切り文字は直前のページに属する
		{11, 1},
		{16, 1},
		{17, 2},
		{18, 2},
		{100, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, doc.PageAt(tt.offset), "offset=%d", tt.offset)
	}

	assert.Equal(t, 0, (&Document{}).PageAt(5))
}

func TestChunk_PointID(t *testing.T) {
	base := Chunk{Content: "同じ内容", Source: "Data/a.pdf", Ordinal: 3}

	t.Run("同じ入力なら同じID", func(t *testing.T) {
		other := base
		assert.Equal(t, base.PointID(), other.PointID())
		assert.Equal(t, base.Key(), other.Key())
	})

	t.Run("位置・ソース・内容のどれかが違えば別のID", func(t *testing.T) {
		variants := []Chunk{
			{Content: base.Content, Source: base.Source, Ordinal: 4},
			{Content: base.Content, Source: "Data/b.pdf", Ordinal: 3},
			{Content: "別の内容", Source: base.Source, Ordinal: 3},
		}
		for _, v := range variants {
			assert.NotEqual(t, base.PointID(), v.PointID())
		}
	})

	t.Run("キーの形式", func(t *testing.T) {
		parts := strings.Split(base.Key(), "#")
		require.Len(t, parts, 3)
		assert.Equal(t, "Data/a.pdf", parts[0])
		assert.Equal(t, "3", parts[1])
		assert.Len(t, parts[2], 16)
	})
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   string
		want Distance
		ok   bool
	}{
		{"Cosine", DistanceCosine, true},
		{"cosine", DistanceCosine, true},
		{"Euclid", DistanceEuclid, true},
		{"l2", DistanceEuclid, true},
		{"DOT", DistanceDot, true},
		{"Manhattan", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDistance(tt.in)
		assert.Equal(t, tt.ok, ok, "input=%q", tt.in)
		assert.Equal(t, tt.want, got, "input=%q", tt.in)
	}
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StageInserting, Batch: 2, Err: ErrEmptyInput}
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, "ingestion: inserting (batch=2): empty input", err.Error())

	err = &StageError{Stage: StageLoading, Err: ErrSourceUnavailable}
	assert.Equal(t, "ingestion: loading: source directory unavailable", err.Error())
}
