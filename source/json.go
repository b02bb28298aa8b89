package source

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/TylerRick/reform"
)

// jsonReader walks the go-json token stream so that depth and duplicate keys
// are enforced while decoding instead of after.
type jsonReader struct {
	dec  *json.Decoder
	opts Options
}

func decodeJSON(data []byte, o Options) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	r := &jsonReader{dec: dec, opts: o}
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, decodeError(err, "empty document")
		}
		return nil, decodeError(err, "invalid JSON")
	}
	v, err := r.fromToken(tok, reform.Path{}, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, decodeError(err, "invalid JSON")
	}
	return v, nil
}

func (r *jsonReader) next(at reform.Path, depth int) (any, error) {
	tok, err := r.dec.Token()
	if err != nil {
		return nil, decodeError(err, "invalid JSON")
	}
	return r.fromToken(tok, at, depth)
}

func (r *jsonReader) fromToken(tok json.Token, at reform.Path, depth int) (any, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return r.object(at, depth+1)
		case '[':
			return r.array(at, depth+1)
		}
		return nil, decodeError(errors.New("unexpected delimiter "+v.String()), "invalid JSON")
	case json.Number:
		return r.number(v)
	case float64:
		return v, nil
	case string, bool, nil:
		return v, nil
	}
	return tok, nil
}

func (r *jsonReader) object(at reform.Path, depth int) (any, error) {
	if depth > r.opts.MaxDepth {
		return nil, tooDeep(at, r.opts.MaxDepth)
	}
	out := reform.Hash{}
	for r.dec.More() {
		kt, err := r.dec.Token()
		if err != nil {
			return nil, decodeError(err, "invalid JSON")
		}
		key, ok := kt.(string)
		if !ok {
			return nil, decodeError(errors.New("object key is not a string"), "invalid JSON")
		}
		kp := at.Field(key)
		if _, dup := out[key]; dup && r.opts.Duplicates == DuplicateError {
			return nil, duplicateKey(kp)
		}
		val, err := r.next(kp, depth)
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	if _, err := r.dec.Token(); err != nil {
		return nil, decodeError(err, "invalid JSON")
	}
	return out, nil
}

func (r *jsonReader) array(at reform.Path, depth int) (any, error) {
	if depth > r.opts.MaxDepth {
		return nil, tooDeep(at, r.opts.MaxDepth)
	}
	out := []any{}
	for i := 0; r.dec.More(); i++ {
		val, err := r.next(at.Index(i), depth)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	if _, err := r.dec.Token(); err != nil {
		return nil, decodeError(err, "invalid JSON")
	}
	return out, nil
}

func (r *jsonReader) number(n json.Number) (any, error) {
	switch r.opts.Numbers {
	case NumberJSONNumber:
		return n, nil
	case NumberFloat64:
		f, err := n.Float64()
		if err != nil {
			return nil, decodeError(err, "invalid number")
		}
		return f, nil
	}
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) {
		if err == nil {
			err = errors.New("number out of range")
		}
		return nil, decodeError(err, "invalid number")
	}
	return f, nil
}
