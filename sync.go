package reform

import "context"

// SaveHook replaces the engine's writes for one form node. It receives the
// node and its slice of the rendered tree.
type SaveHook func(form *Form, nested Hash)

type write struct {
	name  string
	key   string
	value any
}

// Save writes staged values onto the backing objects. Children are saved
// before their parent. Save does not require a prior successful Validate.
func (f *Form) Save(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := f.sync(); err != nil {
		f.rt.logger.WithContext(ctx).Error("reform: save failed", "error", err, "code", TextCode(err))
		return err
	}
	f.rt.logger.WithContext(ctx).Debug("reform: saved", "path", f.path.String())
	return nil
}

// SaveWith calls hook once per form node in post-order, root last, instead
// of writing to any backing object.
func (f *Form) SaveWith(ctx context.Context, hook SaveHook) error {
	if hook == nil {
		return f.Save(ctx)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	calls := f.dispatch(hook)
	f.rt.logger.WithContext(ctx).Debug("reform: save delegated", "path", f.path.String(), "nodes", calls)
	return nil
}

func (f *Form) sync() error {
	for _, p := range f.schema.props {
		switch v := f.fields[p.name].(type) {
		case *Form:
			if v == nil {
				continue
			}
			if err := v.sync(); err != nil {
				return err
			}
		case *Forms:
			for _, child := range v.All() {
				if err := child.sync(); err != nil {
					return err
				}
			}
		}
	}
	batches := f.batches()
	for _, target := range f.batchOrder() {
		owner := f.backing
		if f.schema.mode == ModeComposed {
			owner = f.sources[target]
		}
		for _, w := range batches[target] {
			if err := writeAttribute(owner, w.key, w.value); err != nil {
				return attributeWrite(err, f.path.Field(w.name).String(), w.key)
			}
		}
	}
	return nil
}

// batches groups this node's scalar writes per composition target. Simple
// schemas use the single "" target.
func (f *Form) batches() map[string][]write {
	out := map[string][]write{}
	for _, p := range f.schema.props {
		s, ok := f.fields[p.name].(Scalar)
		if !ok {
			continue
		}
		out[p.target] = append(out[p.target], write{name: p.name, key: p.sourceKey, value: s.V})
	}
	return out
}

func (f *Form) batchOrder() []string {
	if f.schema.mode == ModeComposed {
		return f.schema.targets
	}
	return []string{""}
}

func (f *Form) dispatch(hook SaveHook) int {
	calls := 0
	for _, p := range f.schema.props {
		switch v := f.fields[p.name].(type) {
		case *Form:
			if v != nil {
				calls += v.dispatch(hook)
			}
		case *Forms:
			for _, child := range v.All() {
				calls += child.dispatch(hook)
			}
		}
	}
	hook(f, f.ToHash())
	return calls + 1
}
