package reform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/rules"
)

type song struct {
	Title    string `json:"title"`
	Duration int    `json:"duration"`
}

type album struct {
	Title  string  `json:"title"`
	Artist *artist `json:"artist"`
	Songs  []song  `json:"songs"`
}

type artist struct {
	Name string `json:"name"`
}

func structAlbumSchema() *reform.Schema {
	return reform.NewSchema().
		Property("title", rules.Presence()).
		Nested("artist", func(b *reform.SchemaBuilder) {
			b.Property("name", rules.Presence())
		}).Optional().
		Collection("songs", func(b *reform.SchemaBuilder) {
			b.Property("title", rules.Presence())
			b.Property("duration", rules.Numericality().OnlyInteger().GreaterThan(0))
		}).
		MustBuild()
}

func newStructAlbum() *album {
	return &album{
		Title:  "Ride the Lightning",
		Artist: &artist{Name: "Metallica"},
		Songs:  []song{{Title: "Fight Fire", Duration: 284}, {Title: "Fade", Duration: 396}},
	}
}

// TestValidate_DoesNotTouchBacking stages values without writing them.
func TestValidate_DoesNotTouchBacking(t *testing.T) {
	model := newStructAlbum()
	form, err := reform.New(structAlbumSchema(), model)
	require.NoError(t, err)

	ok := form.Validate(context.Background(), map[string]any{
		"title":  "Kill 'Em All",
		"artist": map[string]any{"name": "M"},
		"songs":  []any{map[string]any{"title": "Whiplash"}},
	})
	require.True(t, ok)

	assert.Equal(t, "Kill 'Em All", form.Get("title"))
	assert.Equal(t, "M", form.Child("artist").Get("name"))
	assert.Equal(t, "Whiplash", form.Children("songs").At(0).Get("title"))
	assert.Equal(t, 284, form.Children("songs").At(0).Get("duration"))
	assert.Equal(t, "Fade", form.Children("songs").At(1).Get("title"))

	assert.Equal(t, newStructAlbum(), model)
}

func TestValidate_Save_WritesIntoStructs(t *testing.T) {
	ctx := context.Background()
	model := newStructAlbum()
	form, err := reform.New(structAlbumSchema(), model)
	require.NoError(t, err)

	require.True(t, form.Validate(ctx, map[string]any{
		"title":  "Kill 'Em All",
		"artist": map[string]any{"name": "M"},
		"songs":  []any{map[string]any{"title": "Whiplash", "duration": 249}},
	}))
	require.NoError(t, form.Save(ctx))

	assert.Equal(t, "Kill 'Em All", model.Title)
	assert.Equal(t, "M", model.Artist.Name)
	assert.Equal(t, []song{{Title: "Whiplash", Duration: 249}, {Title: "Fade", Duration: 396}}, model.Songs)
}

func TestValidate_FailureReportsEveryPath(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)

	ok := form.Validate(context.Background(), map[string]any{
		"title":  "  ",
		"artist": map[string]any{"name": ""},
		"songs": []any{
			map[string]any{"duration": 1.5},
			map[string]any{"duration": "abc"},
		},
	})
	require.False(t, ok)
	assert.False(t, form.Valid())
	assert.Equal(t, map[string][]string{
		"title":            {"can't be blank"},
		"artist.name":      {"can't be blank"},
		"songs.0.duration": {"must be an integer"},
		"songs.1.duration": {"is not a number"},
	}, form.Errors().Messages())
	assert.Equal(t, []string{"artist.name", "songs.0.duration", "songs.1.duration", "title"}, form.Errors().Paths())

	assert.False(t, form.Child("artist").Valid())
	assert.Nil(t, form.Children("songs").At(0).Errors().On("title"))

	var codes []string
	for _, it := range form.Errors().Issues() {
		codes = append(codes, it.Code)
	}
	assert.ElementsMatch(t, []string{
		reform.CodeBlank, reform.CodeBlank, reform.CodeNotAnInteger, reform.CodeNotANumber,
	}, codes)
}

// TestValidate_ErrorsResetOnEveryCall clears issues from a previous run.
func TestValidate_ErrorsResetOnEveryCall(t *testing.T) {
	ctx := context.Background()
	form, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)

	require.False(t, form.Validate(ctx, map[string]any{"title": ""}))
	require.Equal(t, 1, form.Errors().Len())

	require.True(t, form.Validate(ctx, map[string]any{"title": "Back"}))
	assert.True(t, form.Errors().Empty())
	assert.Empty(t, form.Errors().FullMessages())
	assert.Equal(t, "", form.Errors().Error())
}

func TestValidate_NilCandidateRerunsRules(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), &album{Title: ""})
	require.NoError(t, err)

	assert.False(t, form.Validate(context.Background(), nil))
	assert.Equal(t, []string{"can't be blank"}, form.Errors().On("title"))
}

func TestValidate_NonMapCandidate(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)

	assert.False(t, form.Validate(context.Background(), "title=x"))
	assert.Equal(t, []string{"is invalid"}, form.Errors().On(""))
	assert.Equal(t, "Ride the Lightning", form.Get("title"))
}

func TestValidate_NonSequenceCollection(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)

	assert.False(t, form.Validate(context.Background(), map[string]any{"songs": "many"}))
	assert.Equal(t, []string{"is invalid"}, form.Errors().On("songs"))
	assert.Equal(t, 2, form.Children("songs").Len())
}

func TestValidate_UnknownKeys(t *testing.T) {
	ctx := context.Background()
	cand := map[string]any{"title": "T", "label": "Elektra"}

	lenient, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)
	assert.True(t, lenient.Validate(ctx, cand))

	strict, err := reform.New(structAlbumSchema(), newStructAlbum(), reform.WithUnknownPolicy(reform.UnknownStrict))
	require.NoError(t, err)
	assert.False(t, strict.Validate(ctx, cand))
	require.Len(t, strict.Errors().Issues(), 1)
	it := strict.Errors().Issues()[0]
	assert.Equal(t, "label", it.Path)
	assert.Equal(t, reform.CodeUnknownKey, it.Code)
	assert.False(t, strict.ToHash().Has("label"))
}

func TestValidate_UnknownKeysInChildForms(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum(), reform.WithUnknownPolicy(reform.UnknownStrict))
	require.NoError(t, err)

	ok := form.Validate(context.Background(), map[string]any{
		"songs": []any{map[string]any{"title": "x", "bpm": 120}},
	})
	assert.False(t, ok)
	assert.Equal(t, []string{"is not a known property"}, form.Errors().On("songs.0.bpm"))
}

// TestValidate_ExtraCollectionElements ignores candidate elements past the
// existing children and logs a warning.
func TestValidate_ExtraCollectionElements(t *testing.T) {
	logger := newCaptureLogger()
	form, err := reform.New(structAlbumSchema(), newStructAlbum(), reform.WithLogger(logger))
	require.NoError(t, err)

	ok := form.Validate(context.Background(), map[string]any{"songs": []any{
		map[string]any{"title": "a"},
		map[string]any{"title": "b"},
		map[string]any{"title": ""},
	}})
	require.True(t, ok)
	assert.Equal(t, 2, form.Children("songs").Len())
	assert.Equal(t, "b", form.Children("songs").At(1).String("title"))

	warns := logger.at("warn")
	require.Len(t, warns, 1)
	assert.Equal(t, "songs", warns[0].fields["path"])
	assert.Equal(t, 2, warns[0].fields["existing"])
	assert.Equal(t, 3, warns[0].fields["candidate"])
}

func TestValidate_StrictCollections(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum(), reform.WithStrictCollections(true))
	require.NoError(t, err)

	ok := form.Validate(context.Background(), map[string]any{"songs": []any{
		map[string]any{"title": "a"},
		map[string]any{"title": "b"},
		map[string]any{"title": "c"},
	}})
	require.False(t, ok)
	require.Len(t, form.Errors().Issues(), 1)
	it := form.Errors().Issues()[0]
	assert.Equal(t, reform.CodeSizeMismatch, it.Code)
	assert.Equal(t, "songs", it.Path)
	assert.Equal(t, map[string]any{"got": 3, "want": 2}, it.Params)
	assert.Equal(t, "has 3 entries but 2 were expected", it.Message)
}

func TestValidate_ShorterCandidateCollectionKeepsTail(t *testing.T) {
	model := newStructAlbum()
	form, err := reform.New(structAlbumSchema(), model)
	require.NoError(t, err)

	require.True(t, form.Validate(context.Background(), map[string]any{"songs": []any{}}))
	assert.Equal(t, 2, form.Children("songs").Len())
	assert.Equal(t, "Fight Fire", form.Children("songs").At(0).String("title"))
}

func TestValidate_OptionalNestedAbsent(t *testing.T) {
	ctx := context.Background()
	logger := newCaptureLogger()
	form, err := reform.New(structAlbumSchema(), &album{Title: "Demo"}, reform.WithLogger(logger))
	require.NoError(t, err)

	assert.Nil(t, form.Child("artist"))
	assert.Nil(t, form.Get("artist"))
	assert.Equal(t, reform.Hash{"title": "Demo", "artist": nil, "songs": []reform.Hash{}}, form.ToHash())

	assert.True(t, form.Validate(ctx, map[string]any{"artist": map[string]any{"name": ""}}))
	assert.Nil(t, form.Child("artist"))
	assert.NotEmpty(t, logger.at("debug"))
	require.NoError(t, form.Save(ctx))
}

// TestValidate_NullNestedAndCollection rejects null where a child form or a
// collection exists, leaving the children in place.
func TestValidate_NullNestedAndCollection(t *testing.T) {
	ctx := context.Background()
	fx := newAlbumFixture(t)

	require.False(t, fx.form.Validate(ctx, map[string]any{"hit": nil, "songs": nil}))
	assert.Equal(t, map[string][]string{
		"hit":   {"is invalid"},
		"songs": {"is invalid"},
	}, fx.form.Errors().Messages())
	assert.Equal(t, reform.CodeInvalid, fx.form.Errors().Issues()[0].Code)
	assert.Equal(t, "Downtown", fx.form.Child("hit").String("title"))
	assert.Equal(t, 1, fx.form.Children("songs").Len())

	form, err := reform.New(structAlbumSchema(), &album{Title: "Demo"})
	require.NoError(t, err)
	assert.True(t, form.Validate(ctx, map[string]any{"artist": nil}))
	assert.True(t, form.Validate(ctx, map[string]any{"songs": []any(nil)}))

	v, ok := form.Value("artist")
	assert.True(t, ok)
	assert.True(t, v == nil, "got %#v", v)
}

func TestValidate_RequiredNestedMissing(t *testing.T) {
	schema := reform.NewSchema().
		Nested("artist", func(b *reform.SchemaBuilder) { b.Property("name") }).
		MustBuild()

	_, err := reform.New(schema, &album{})
	require.Error(t, err)
	assert.Equal(t, reform.TextCodeMissingNestedSource, reform.TextCode(err))
}

func TestValidate_PresenceOnNestedAndCollection(t *testing.T) {
	schema := reform.NewSchema().
		Nested("artist", func(b *reform.SchemaBuilder) { b.Property("name") }, rules.Presence()).Optional().
		Collection("songs", func(b *reform.SchemaBuilder) { b.Property("title") }, rules.Presence()).
		MustBuild()

	form, err := reform.New(schema, &album{})
	require.NoError(t, err)
	assert.False(t, form.Validate(context.Background(), nil))
	assert.Equal(t, []string{"can't be blank"}, form.Errors().On("artist"))
	assert.Equal(t, []string{"can't be blank"}, form.Errors().On("songs"))

	form, err = reform.New(schema, newStructAlbum())
	require.NoError(t, err)
	assert.True(t, form.Validate(context.Background(), nil))
}

// TestValidate_RulesSeeChildValidity gives nested properties the child's
// validity as their value.
func TestValidate_RulesSeeChildValidity(t *testing.T) {
	var seen []any
	spy := reform.RuleFunc(func(rc reform.RuleCtx) []reform.Issue {
		seen = append(seen, rc.Value, rc.Siblings.Get("songs"))
		return nil
	})
	schema := reform.NewSchema().
		Nested("artist", func(b *reform.SchemaBuilder) { b.Property("name", rules.Presence()) }, spy).
		Collection("songs", func(b *reform.SchemaBuilder) { b.Property("title", rules.Presence()) }).
		MustBuild()

	form, err := reform.New(schema, newStructAlbum())
	require.NoError(t, err)

	form.Validate(context.Background(), map[string]any{
		"artist": map[string]any{"name": ""},
		"songs":  []any{map[string]any{"title": "ok"}},
	})
	assert.Equal(t, []any{false, true}, seen)
}

func TestValidate_ChangedAndPresence(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)

	assert.False(t, form.Changed("title"))
	form.Validate(context.Background(), map[string]any{
		"title":  nil,
		"artist": map[string]any{"name": "M"},
		"songs":  []any{map[string]any{"duration": 3}},
	})

	assert.True(t, form.Changed("title"))
	assert.True(t, form.Changed(reform.Symbol("artist")))
	assert.False(t, form.Children("songs").At(0).Changed("title"))
	assert.True(t, form.Children("songs").At(0).Changed("duration"))
	assert.False(t, form.Changed("nope"))

	pm := form.Presence()
	assert.True(t, pm.Has("title", reform.PresenceSeen|reform.PresenceWasNull))
	assert.True(t, pm.Has("artist.name", reform.PresenceSeen))
	assert.False(t, pm.Has("artist.name", reform.PresenceWasNull))
	assert.Equal(t, []string{"artist", "artist.name", "songs", "songs.0.duration", "title"}, pm.Paths())
}

func TestValidate_SymbolAndStringKeys(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)

	form.Validate(context.Background(), map[any]any{
		reform.Symbol("title"): "symbol",
		"title":                "string",
	})
	assert.Equal(t, "string", form.Get("title"))

	form.Validate(context.Background(), map[reform.Symbol]any{"title": "only symbol"})
	assert.Equal(t, "only symbol", form.Get(reform.Symbol("title")))
}

func TestValidate_NilContext(t *testing.T) {
	form, err := reform.New(structAlbumSchema(), newStructAlbum())
	require.NoError(t, err)
	assert.True(t, form.Validate(nil, map[string]any{"title": "x"}))
	require.NoError(t, form.Save(nil))
	assert.Equal(t, "x", form.Get("title"))
}

func TestValidate_RuleContextCarriesCaller(t *testing.T) {
	type key struct{}
	var got any
	schema := reform.NewSchema().
		Property("title", rules.Func("ctx", func(rc reform.RuleCtx) []reform.Issue {
			got = rc.Ctx.Value(key{})
			return nil
		})).
		MustBuild()
	form, err := reform.New(schema, newStructAlbum())
	require.NoError(t, err)

	form.Validate(context.WithValue(context.Background(), key{}, "caller"), nil)
	assert.Equal(t, "caller", got)
}
