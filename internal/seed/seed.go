package seed

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/kinware/redux-first-router/internal/engine"
	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/location"
)

// Seed is the compiled form of a seed file.
type Seed struct {
	Index    int
	Basename string
	Entries  []Entry
}

// Entry is one initial stack position.
type Entry struct {
	Path  string
	State ir.Object
	Key   string // optional
}

// Load reads and compiles the seed file at path.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(data, path)
}

// Parse compiles seed source. filename is used in error positions.
func Parse(src []byte, filename string) (*Seed, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return Compile(v)
}

// Compile converts a CUE value into a Seed.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func Compile(v cue.Value) (*Seed, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Seed{}

	basenameVal := v.LookupPath(cue.ParsePath("basename"))
	if basenameVal.Exists() {
		basename, err := basenameVal.String()
		if err != nil {
			return nil, fieldError("basename", basenameVal, err)
		}
		s.Basename = basename
	}

	entriesVal := v.LookupPath(cue.ParsePath("entries"))
	if !entriesVal.Exists() {
		return nil, &CompileError{
			Field:   "entries",
			Message: "entries is required",
			Pos:     v.Pos(),
		}
	}

	var err error
	s.Entries, err = parseEntries(entriesVal)
	if err != nil {
		return nil, err
	}
	if len(s.Entries) == 0 {
		return nil, &CompileError{
			Field:   "entries",
			Message: "at least one entry is required",
			Pos:     entriesVal.Pos(),
		}
	}

	s.Index = len(s.Entries) - 1
	indexVal := v.LookupPath(cue.ParsePath("index"))
	if indexVal.Exists() {
		index, err := indexVal.Int64()
		if err != nil {
			return nil, fieldError("index", indexVal, err)
		}
		if index < 0 || index >= int64(len(s.Entries)) {
			return nil, &CompileError{
				Field:   "index",
				Message: fmt.Sprintf("index %d out of range [0, %d)", index, len(s.Entries)),
				Pos:     indexVal.Pos(),
			}
		}
		s.Index = int(index)
	}

	return s, nil
}

// parseEntries extracts the entries list.
func parseEntries(v cue.Value) ([]Entry, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fieldError("entries", v, err)
	}

	var entries []Entry
	for i := 0; iter.Next(); i++ {
		entry, err := parseEntry(iter.Value(), fmt.Sprintf("entries[%d]", i))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseEntry accepts either a bare path string or a struct with path,
// state and key fields.
func parseEntry(v cue.Value, field string) (Entry, error) {
	if path, err := v.String(); err == nil {
		return Entry{Path: path, State: ir.Object{}}, nil
	}

	pathVal := v.LookupPath(cue.ParsePath("path"))
	if !pathVal.Exists() {
		return Entry{}, &CompileError{
			Field:   field + ".path",
			Message: "path is required",
			Pos:     v.Pos(),
		}
	}
	path, err := pathVal.String()
	if err != nil {
		return Entry{}, fieldError(field+".path", pathVal, err)
	}
	entry := Entry{Path: path, State: ir.Object{}}

	stateVal := v.LookupPath(cue.ParsePath("state"))
	if stateVal.Exists() {
		var raw map[string]any
		if err := stateVal.Decode(&raw); err != nil {
			return Entry{}, fieldError(field+".state", stateVal, err)
		}
		state, err := ir.ObjectFromMap(raw)
		if err != nil {
			return Entry{}, &CompileError{
				Field:   field + ".state",
				Message: err.Error(),
				Pos:     stateVal.Pos(),
			}
		}
		entry.State = state
	}

	keyVal := v.LookupPath(cue.ParsePath("key"))
	if keyVal.Exists() {
		key, err := keyVal.String()
		if err != nil {
			return Entry{}, fieldError(field+".key", keyVal, err)
		}
		entry.Key = key
	}

	return entry, nil
}

// Build turns the seed into an engine configuration. Entries are created
// in order with f, each resolved against the one before it, so relative
// paths work. Entries without a key get one from keys.
func (s *Seed) Build(f *location.Factory, keys engine.KeyGenerator) engine.Config {
	entries := make([]ir.Location, len(s.Entries))
	var prev *ir.Location
	for i, e := range s.Entries {
		key := e.Key
		if key == "" {
			key = keys.Generate()
		}
		entries[i] = f.Create(e.Path, e.State.Clone(), key, prev)
		prev = &entries[i]
	}

	return engine.Config{
		Index:    s.Index,
		Entries:  entries,
		Basename: s.Basename,
	}
}

// CompileError is a seed error with an optional source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field string, v cue.Value, err error) *CompileError {
	return &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
