package reform_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerRick/reform"
)

func TestHash_IndifferentAccess(t *testing.T) {
	h := reform.Hash{"title": "Second Heat"}
	assert.Equal(t, "Second Heat", h.Get("title"))
	assert.Equal(t, "Second Heat", h.Get(reform.Symbol("title")))
	assert.True(t, h.Has(reform.Symbol("title")))
	assert.False(t, h.Has("year"))
	assert.Equal(t, 2007, h.Fetch("year", 2007))
	assert.Nil(t, h.Get(42))

	h.Set(reform.Symbol("year"), 2008)
	assert.Equal(t, 2008, h["year"])

	var nilHash reform.Hash
	assert.Nil(t, nilHash.Get("x"))
	assert.Nil(t, nilHash.Hash("x"))
}

func TestHash_Dig(t *testing.T) {
	h := reform.Hash{
		"hit":   reform.Hash{"title": "Sacrifice"},
		"songs": []reform.Hash{{"title": "Scarified"}},
		"tags":  []any{"a", reform.Hash{"k": "v"}},
	}

	v, ok := h.Dig("hit", reform.Symbol("title"))
	require.True(t, ok)
	assert.Equal(t, "Sacrifice", v)

	v, ok = h.Dig("songs", "0", "title")
	require.True(t, ok)
	assert.Equal(t, "Scarified", v)

	v, ok = h.Dig("tags", 1, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = h.Dig("songs", 5)
	assert.False(t, ok)
	_, ok = h.Dig("hit", "title", "deeper")
	assert.False(t, ok)
}

// TestIndifferent_StringKeyWins resolves collisions between spellings in
// favor of the plain string key.
func TestIndifferent_StringKeyWins(t *testing.T) {
	h, ok := reform.Indifferent(map[any]any{
		reform.Symbol("title"): "symbol",
		"title":                "string",
		reform.Symbol("year"):  2007,
	})
	require.True(t, ok)
	assert.Equal(t, reform.Hash{"title": "string", "year": 2007}, h)
}

func TestIndifferent_NormalizesNesting(t *testing.T) {
	type label string
	h, ok := reform.Indifferent(map[string]any{
		"hit":    map[reform.Symbol]any{"title": "x"},
		"songs":  []any{map[string]any{"title": "y"}},
		"labels": map[label]any{"a": 1},
	})
	require.True(t, ok)
	assert.Equal(t, reform.Hash{"title": "x"}, h["hit"])
	assert.Equal(t, []any{reform.Hash{"title": "y"}}, h["songs"])
	assert.Equal(t, reform.Hash{"a": 1}, h["labels"])

	_, ok = reform.Indifferent([]any{1})
	assert.False(t, ok)
	_, ok = reform.Indifferent(map[int]any{1: 1})
	assert.False(t, ok)
	_, ok = reform.Indifferent(nil)
	assert.False(t, ok)
}

func TestHash_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(reform.Hash{"title": "x", "hit": reform.Hash{"a": 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hit":{"a":1},"title":"x"}`, string(b))
	assert.Equal(t, []string{"hit", "title"}, reform.Hash{"title": 1, "hit": 2}.Keys())
}

func TestPath(t *testing.T) {
	p := reform.Path{}.Field("songs").Index(2).Field("title")
	assert.Equal(t, "songs.2.title", p.String())
	assert.Equal(t, "title", p.Last())
	assert.Equal(t, []string{"songs", "2", "title"}, p.Segments())
	assert.False(t, p.IsRoot())
	assert.True(t, reform.Path{}.IsRoot())
	assert.Equal(t, "", reform.Path{}.Last())

	assert.Equal(t, p, reform.ParsePath("songs..2.title."))
	assert.Equal(t, "a.songs.2.title", reform.ParsePath("a").Join(p).String())
	assert.Equal(t, reform.ParsePath("a"), reform.ParsePath("a").Field(""))

	it := p.Issue("too_short", "is too short", "count", 3, "odd")
	assert.Equal(t, "songs.2.title", it.Path)
	assert.Equal(t, map[string]any{"count": 3}, it.Params)
}
