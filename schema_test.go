package reform_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/jsonschema"
	"github.com/TylerRick/reform/rules"
)

func TestSchema_PropertiesKeepDeclarationOrder(t *testing.T) {
	s := reform.NewSchema().
		Property("title").From("name").
		Nested("hit", func(b *reform.SchemaBuilder) { b.Property("title") }).
		Collection("songs", func(b *reform.SchemaBuilder) { b.Property("title") }).
		MustBuild()

	var names []string
	for _, p := range s.Properties() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"title", "hit", "songs"}, names)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, reform.ModeSimple, s.Mode())

	p, ok := s.Property(reform.Symbol("title"))
	require.True(t, ok)
	assert.Equal(t, "name", p.SourceKey())
	assert.Equal(t, reform.KindScalar, p.Kind())

	hit, ok := s.Property("hit")
	require.True(t, ok)
	assert.Equal(t, reform.KindNested, hit.Kind())
	require.NotNil(t, hit.Child())
	assert.Equal(t, 1, hit.Child().Len())

	_, ok = s.Property("missing")
	assert.False(t, ok)
}

// TestSchema_BuildErrors reports definition failures as coded errors.
func TestSchema_BuildErrors(t *testing.T) {
	song := reform.NewSchema().Property("title").MustBuild()
	composed := reform.NewComposedSchema("a").PropertyOn("x", "a").MustBuild()

	cases := []struct {
		name  string
		build func() (*reform.Schema, error)
		code  string
	}{
		{
			name:  "duplicate property",
			build: reform.NewSchema().Property("title").Property("title").Build,
			code:  reform.TextCodeSchemaConflict,
		},
		{
			name:  "empty name",
			build: reform.NewSchema().Property(" ").Build,
			code:  reform.TextCodeInvalidProperty,
		},
		{
			name:  "nested without schema",
			build: reform.NewSchema().NestedSchema("hit", nil).Build,
			code:  reform.TextCodeMissingChildSchema,
		},
		{
			name:  "unknown target",
			build: reform.NewComposedSchema("a").PropertyOn("x", "b").Build,
			code:  reform.TextCodeUnknownCompositionTarget,
		},
		{
			name:  "target in simple schema",
			build: reform.NewSchema().Property("x").On("a").Build,
			code:  reform.TextCodeUnknownCompositionTarget,
		},
		{
			name:  "composed child without binder",
			build: reform.NewSchema().NestedSchema("inv", composed).Build,
			code:  reform.TextCodeCompositionBinding,
		},
		{
			name: "binder on simple child",
			build: reform.NewSchema().NestedSchema("hit", song).
				Bind(func(any) (map[string]any, error) { return nil, nil }).Build,
			code: reform.TextCodeCompositionBinding,
		},
		{
			name:  "validates undeclared",
			build: reform.NewSchema().Property("title").Validates("year", rules.Presence()).Build,
			code:  reform.TextCodeInvalidProperty,
		},
		{
			name: "too deep",
			build: reform.NewSchema().MaxDepth(1).
				NestedSchema("hit", song).Build,
			code: reform.TextCodeDepthExceeded,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := tc.build()
			require.Error(t, err)
			assert.Nil(t, s)
			assert.Equal(t, tc.code, reform.TextCode(err))
		})
	}
}

func TestSchema_BuildErrorIsRichError(t *testing.T) {
	_, err := reform.NewSchema().Property("a").Property("a").Build()
	require.Error(t, err)

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, goerrors.CategoryConflict, rich.Category)
	assert.Equal(t, reform.TextCodeSchemaConflict, rich.TextCode)
}

func TestSchema_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		reform.NewSchema().Property("a").Property("a").MustBuild()
	})
}

func TestSchema_DuplicateAcrossStatements(t *testing.T) {
	b := reform.NewSchema()
	b.Property("a").From("first")
	b.Property("a").From("second")
	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, reform.TextCodeSchemaConflict, reform.TextCode(err))
}

func TestSchema_ComposedTargets(t *testing.T) {
	s := reform.NewComposedSchema("invitation", "recipient", "invitation").
		Target("extra").
		PropertyOn("relationship", "invitation").
		MustBuild()
	assert.Equal(t, reform.ModeComposed, s.Mode())
	assert.Equal(t, []string{"invitation", "recipient", "extra"}, s.Targets())

	p, _ := s.Property("relationship")
	assert.Equal(t, "invitation", p.Target())
}

func TestSchema_JSONSchema(t *testing.T) {
	s := reform.NewSchema().
		Property("title", rules.Presence(), rules.Length(2, 80)).
		Property("year", rules.Numericality().OnlyInteger().GreaterThanOrEqualTo(1900).AllowNil()).
		Property("genre", rules.Inclusion("rock", "jazz")).
		Nested("hit", func(b *reform.SchemaBuilder) {
			b.Property("title", rules.Presence())
		}).
		Collection("songs", func(b *reform.SchemaBuilder) {
			b.Property("title")
		}, rules.MinItems(1)).
		MustBuild()

	doc, err := s.JSONSchema()
	require.NoError(t, err)

	assert.Equal(t, "object", doc.Type)
	assert.Equal(t, []string{"title"}, doc.Required)

	title := doc.Properties["title"]
	require.NotNil(t, title)
	assert.Equal(t, jsonschema.Int(2), title.MinLength)
	assert.Equal(t, jsonschema.Int(80), title.MaxLength)

	year := doc.Properties["year"]
	assert.Equal(t, "integer", year.Type)
	assert.Equal(t, jsonschema.Float(1900), year.Minimum)

	assert.Equal(t, []any{"rock", "jazz"}, doc.Properties["genre"].Enum)

	hit := doc.Properties["hit"]
	assert.Equal(t, "object", hit.Type)
	assert.Equal(t, []string{"title"}, hit.Required)

	songs := doc.Properties["songs"]
	assert.Equal(t, "array", songs.Type)
	require.NotNil(t, songs.Items)
	assert.Equal(t, "object", songs.Items.Type)
	assert.Equal(t, jsonschema.Int(1), songs.MinItems)
}

func TestSchema_JSONSchemaCarriesTargets(t *testing.T) {
	s := reform.NewComposedSchema("invitation", "recipient").
		PropertyOn("relationship", "invitation").
		PropertyOn("email", "recipient", rules.Presence()).
		MustBuild()

	doc, err := s.JSONSchema()
	require.NoError(t, err)
	assert.Equal(t, "invitation", doc.Properties["relationship"].Target)
	assert.Equal(t, "recipient", doc.Properties["email"].Target)
	assert.Equal(t, []string{"email"}, doc.Required)
}

func TestNew_ConstructionErrors(t *testing.T) {
	simple := reform.NewSchema().Property("title").MustBuild()
	composed := reform.NewComposedSchema("a", "b").PropertyOn("x", "a").PropertyOn("y", "b").MustBuild()

	_, err := reform.New(nil, map[string]any{})
	assert.Equal(t, reform.TextCodeMissingChildSchema, reform.TextCode(err))

	_, err = reform.New(composed, map[string]any{})
	assert.Equal(t, reform.TextCodeCompositionBinding, reform.TextCode(err))

	_, err = reform.NewComposed(simple, map[string]any{})
	assert.Equal(t, reform.TextCodeCompositionBinding, reform.TextCode(err))

	_, err = reform.New(simple, nil)
	assert.Equal(t, reform.TextCodeMissingNestedSource, reform.TextCode(err))

	_, err = reform.NewComposed(composed, map[string]any{"a": reform.NewRecord(nil)})
	assert.Equal(t, reform.TextCodeMissingCompositionSource, reform.TextCode(err))

	_, err = reform.New(simple, 42)
	assert.Equal(t, reform.TextCodeInvalidSource, reform.TextCode(err))

	_, err = reform.New(simple, map[string]any{}, reform.WithMaxDepth(-1))
	assert.Equal(t, reform.TextCodeInvalidConfig, reform.TextCode(err))
}

func TestNew_MaxDepthFromConfig(t *testing.T) {
	leaf := reform.NewSchema().Property("v").MustBuild()
	mid := reform.NewSchema().NestedSchema("leaf", leaf).MustBuild()
	root := reform.NewSchema().NestedSchema("mid", mid).MustBuild()

	model := map[string]any{"mid": map[string]any{"leaf": map[string]any{"v": 1}}}

	_, err := reform.New(root, model)
	require.NoError(t, err)

	_, err = reform.New(root, model, reform.WithMaxDepth(2))
	require.Error(t, err)
	assert.Equal(t, reform.TextCodeDepthExceeded, reform.TextCode(err))
}

func TestNew_StrictAttributes(t *testing.T) {
	s := reform.NewSchema().Property("title").Property("year").MustBuild()
	model := map[string]any{"title": "x"}

	form, err := reform.New(s, model)
	require.NoError(t, err)
	assert.Nil(t, form.Get("year"))

	_, err = reform.New(s, model, reform.WithAttributeMode(reform.AttributesStrict))
	require.Error(t, err)
	assert.Equal(t, reform.TextCodeMissingAttribute, reform.TextCode(err))
}

func TestNew_BinderErrorIsWrapped(t *testing.T) {
	inv := reform.NewComposedSchema("a").PropertyOn("x", "a").MustBuild()
	s := reform.NewSchema().
		NestedSchema("inv", inv).
		Bind(func(any) (map[string]any, error) { return nil, assert.AnError }).
		MustBuild()

	_, err := reform.New(s, map[string]any{"inv": map[string]any{}})
	require.Error(t, err)
	assert.Equal(t, reform.TextCodeCompositionBinding, reform.TextCode(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNew_NilCollectionElement(t *testing.T) {
	s := reform.NewSchema().
		Collection("songs", func(b *reform.SchemaBuilder) { b.Property("title") }).
		MustBuild()

	_, err := reform.New(s, map[string]any{"songs": []any{map[string]any{"title": "a"}, nil}})
	require.Error(t, err)
	assert.Equal(t, reform.TextCodeMissingNestedSource, reform.TextCode(err))
	assert.Contains(t, err.Error(), "songs.1")
}
