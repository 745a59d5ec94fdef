// Package deps resolves the dependency descriptors attached to a file into
// full file resources, filtered by relation kind.
package deps

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jxwalker/cfcore/internal/logging"
)

// Relation is how a file relates to one of its dependencies.
type Relation int

const (
	EmbeddedLibrary Relation = iota + 1
	OptionalDependency
	RequiredDependency
	Tool
	Incompatible
	Include
)

var relationNames = map[Relation]string{
	EmbeddedLibrary:    "embedded-library",
	OptionalDependency: "optional",
	RequiredDependency: "required",
	Tool:               "tool",
	Incompatible:       "incompatible",
	Include:            "include",
}

func (r Relation) String() string {
	if s, ok := relationNames[r]; ok {
		return s
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// ParseRelation accepts the names printed by String, case-insensitively.
func ParseRelation(s string) (Relation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range relationNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown relation %q", s)
}

// Descriptor is an unresolved reference from a file to another file.
type Descriptor struct {
	ModID    int      `json:"modId"`
	FileID   int      `json:"fileId"`
	Relation Relation `json:"relationType"`
}

// LookupFunc fetches the full resource for one descriptor.
type LookupFunc[T any] func(ctx context.Context, modID, fileID int) (T, error)

// ResolutionError names the descriptor whose lookup failed.
type ResolutionError struct {
	ModID  int
	FileID int
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve dependency mod=%d file=%d: %v", e.ModID, e.FileID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Filter returns the descriptors whose relation is in kinds, in input order.
// With no kinds it keeps required dependencies only.
func Filter(descs []Descriptor, kinds ...Relation) []Descriptor {
	if len(kinds) == 0 {
		kinds = []Relation{RequiredDependency}
	}
	want := make(map[Relation]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Descriptor
	for _, d := range descs {
		if want[d.Relation] {
			out = append(out, d)
		}
	}
	return out
}

// Walker resolves descriptors through Lookup.
type Walker[T any] struct {
	Lookup LookupFunc[T]
	// Workers bounds concurrent lookups; values <= 1 resolve sequentially.
	Workers int
	Log     *logging.Logger
}

// Walk resolves the descriptors matching kinds. Results keep the input order.
// The first failed lookup aborts the walk and no partial results are returned.
func (w *Walker[T]) Walk(ctx context.Context, descs []Descriptor, kinds ...Relation) ([]T, error) {
	if w.Lookup == nil {
		return nil, fmt.Errorf("deps: nil lookup")
	}
	todo := Filter(descs, kinds...)
	w.Log.Debugf("resolving %d of %d dependencies", len(todo), len(descs))
	if len(todo) == 0 {
		return []T{}, nil
	}
	if w.Workers <= 1 {
		return w.sequential(ctx, todo)
	}
	return w.parallel(ctx, todo)
}

func (w *Walker[T]) sequential(ctx context.Context, todo []Descriptor) ([]T, error) {
	out := make([]T, 0, len(todo))
	for _, d := range todo {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := w.Lookup(ctx, d.ModID, d.FileID)
		if err != nil {
			return nil, &ResolutionError{ModID: d.ModID, FileID: d.FileID, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

func (w *Walker[T]) parallel(ctx context.Context, todo []Descriptor) ([]T, error) {
	out := make([]T, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.Workers)
	for i, d := range todo {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := w.Lookup(gctx, d.ModID, d.FileID)
			if err != nil {
				return &ResolutionError{ModID: d.ModID, FileID: d.FileID, Err: err}
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
