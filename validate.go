package reform

import (
	"context"

	"github.com/TylerRick/reform/messages"
)

// Validate stages candidate into the field tree and runs every rule. It
// returns whether the whole tree is valid. Staged values remain on failure;
// backing objects are never touched.
func (f *Form) Validate(ctx context.Context, candidate any) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	valid := f.validate(ctx, candidate)
	logger := f.rt.logger.WithContext(ctx)
	if valid {
		logger.Debug("reform: validated", "path", f.path.String())
	} else {
		logger.Debug("reform: validation failed",
			"path", f.path.String(),
			"issues", f.errors.Len(),
		)
	}
	return valid
}

func (f *Form) validate(ctx context.Context, candidate any) bool {
	f.errors.reset()
	f.presence = map[string]Presence{}

	in := Hash{}
	if candidate != nil {
		h, ok := Indifferent(candidate)
		if !ok {
			f.errors.Add(Path{}.Issue(CodeInvalid, messages.Render(CodeInvalid, nil)))
			f.valid = false
			return false
		}
		in = h
	}

	if f.rt.cfg.Unknown == UnknownStrict {
		for _, k := range in.Keys() {
			if f.schema.lookup(k) == nil {
				f.errors.Add(Path{}.Field(k).Issue(CodeUnknownKey, messages.Render(CodeUnknownKey, nil)))
			}
		}
	}

	for _, p := range f.schema.props {
		raw, present := in[p.name]
		if present {
			f.presence[p.name] = presenceOf(raw)
		}
		switch p.kind {
		case KindNested:
			child := f.Child(p.name)
			switch {
			case !present:
			case child == nil:
				if raw != nil {
					f.rt.logger.Debug("reform: candidate for absent optional child ignored", "path", f.path.Field(p.name).String())
				}
			case raw == nil:
				// null cannot clear a child form
				child.validate(ctx, nil)
				f.errors.Add(Path{}.Field(p.name).Issue(CodeInvalid, messages.Render(CodeInvalid, nil)))
			default:
				child.validate(ctx, raw)
			}
		case KindCollection:
			if present {
				f.stageCollection(ctx, p, raw)
			}
		default:
			if present {
				f.fields[p.name] = Scalar{V: raw}
			}
		}
	}

	siblings := f.staged()
	for _, p := range f.schema.props {
		at := Path{}.Field(p.name)
		switch v := f.fields[p.name].(type) {
		case *Form:
			if v != nil {
				f.errors.Add(rebase(at, v.errors.issues)...)
			}
		case *Forms:
			for i, child := range v.All() {
				f.errors.Add(rebase(at.Index(i), child.errors.issues)...)
			}
		}
		f.errors.Add(runRules(RuleCtx{
			Ctx:      ctx,
			Form:     f,
			Name:     p.name,
			Path:     at,
			Value:    siblings[p.name],
			Siblings: siblings,
		}, p.rules)...)
	}

	f.valid = f.errors.Empty()
	return f.valid
}

// stageCollection validates candidate elements pairwise against the existing
// child forms. Existing children beyond the candidate length stay as they are.
func (f *Form) stageCollection(ctx context.Context, p *Property, raw any) {
	at := Path{}.Field(p.name)
	forms := f.Children(p.name)
	seq, ok := sequenceOf(raw)
	if !ok {
		f.errors.Add(at.Issue(CodeInvalid, messages.Render(CodeInvalid, nil)))
		return
	}
	n := min(len(seq), forms.Len())
	for i := 0; i < n; i++ {
		forms.items[i].validate(ctx, seq[i])
	}
	if extra := len(seq) - forms.Len(); extra > 0 {
		if f.rt.cfg.StrictCollections {
			f.errors.Add(at.Issue(CodeSizeMismatch,
				messages.Render(CodeSizeMismatch, map[string]any{"got": len(seq), "want": forms.Len()}),
				"got", len(seq), "want", forms.Len()))
			return
		}
		f.rt.logger.Warn("reform: extra collection elements ignored",
			"path", f.path.Join(at).String(),
			"existing", forms.Len(),
			"candidate", len(seq),
		)
	}
}

// staged returns the values rules see: scalars as staged, nested and
// collection properties as the validity of their child forms. An absent
// optional child reads as nil.
func (f *Form) staged() Hash {
	out := make(Hash, len(f.schema.props))
	for _, p := range f.schema.props {
		switch v := f.fields[p.name].(type) {
		case Scalar:
			out[p.name] = v.V
		case *Form:
			if v == nil {
				out[p.name] = nil
			} else {
				out[p.name] = v.valid
			}
		case *Forms:
			out[p.name] = v.valid()
		}
	}
	return out
}
