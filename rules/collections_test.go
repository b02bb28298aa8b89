package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/jsonschema"
	"github.com/TylerRick/reform/rules"
)

func songsForm(t *testing.T, titles ...string) *reform.Form {
	t.Helper()
	s := reform.NewSchema().
		Collection("songs", func(b *reform.SchemaBuilder) {
			b.Property("title")
		}, rules.MinItems(2), rules.UniqueBy("title")).
		MustBuild()
	songs := make([]any, len(titles))
	for i, title := range titles {
		songs[i] = map[string]any{"title": title}
	}
	form, err := reform.New(s, map[string]any{"songs": songs})
	require.NoError(t, err)
	return form
}

func TestMinItems(t *testing.T) {
	form := songsForm(t, "a")
	require.False(t, form.Validate(context.Background(), nil))
	assert.Equal(t, []string{"must have at least 2 entries"}, form.Errors().On("songs"))

	form = songsForm(t, "a", "b")
	assert.True(t, form.Validate(context.Background(), nil))
}

// TestUniqueBy reports each repeat at its own element, never the first
// occurrence.
func TestUniqueBy(t *testing.T) {
	form := songsForm(t, "a", "b", "c")
	ok := form.Validate(context.Background(), map[string]any{"songs": []any{
		map[string]any{"title": "x"},
		map[string]any{"title": "y"},
		map[string]any{"title": "x"},
	}})
	require.False(t, ok)

	issues := form.Errors().Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "songs.2.title", issues[0].Path)
	assert.Equal(t, reform.CodeTaken, issues[0].Code)
	assert.Equal(t, "has already been taken", issues[0].Message)
	assert.Equal(t, 0, issues[0].Params["first"])
	assert.Equal(t, "unique_by", issues[0].Rule)
}

func TestUniqueBy_SkipsNil(t *testing.T) {
	s := reform.NewSchema().
		Collection("songs", func(b *reform.SchemaBuilder) { b.Property("title") }, rules.UniqueBy("title")).
		MustBuild()
	form, err := reform.New(s, map[string]any{"songs": []any{map[string]any{}, map[string]any{}}})
	require.NoError(t, err)
	assert.True(t, form.Validate(context.Background(), nil))
}

func TestCollectionRules_DescribeSchema(t *testing.T) {
	s := &jsonschema.Schema{Type: "array"}
	assert.False(t, rules.MinItems(3).(reform.SchemaDescriber).DescribeSchema(s))
	assert.Equal(t, jsonschema.Int(3), s.MinItems)

	assert.True(t, rules.Presence().(reform.SchemaDescriber).DescribeSchema(s))
	assert.Equal(t, jsonschema.Int(1), s.MinItems)
}
