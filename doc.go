package reform

// Package reform maps domain objects onto validated, nested form objects and
// synchronizes accepted input back onto them.
//
// - Schemas declare scalar, nested and collection properties, optionally
//   routed across several backing objects (composition)
// - A Form materializes the field tree once and renders it with ToHash
// - Validate stages a candidate hash into the tree and runs rules without
//   touching backing objects; errors are keyed by dotted path ("hit.title")
// - Save writes staged values back, children first, or hands every node to a
//   SaveHook instead
//
// Design policy:
// - Keep the public API in the root package; rules live in rules/, message
//   templates in messages/, decoding in source/ and YAML catalogs in schemafile/.
// - Definition, build and write failures are go-errors values carrying a
//   REFORM_* text code. Validation failures are never Go errors.
//
// Typical usage:
//
//  album := reform.NewSchema().
//      Property("title", rules.Presence()).
//      Nested("hit", func(b *reform.SchemaBuilder) {
//          b.Property("title", rules.Presence())
//      }).
//      Collection("songs", func(b *reform.SchemaBuilder) {
//          b.Property("title", rules.Presence())
//      }).
//      MustBuild()
//
//  form, err := reform.New(album, &model)
//  if form.Validate(ctx, candidate) {
//      err = form.Save(ctx)
//  }
//
