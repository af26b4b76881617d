// Package source defines the capability every marketplace adapter provides
// (read its raw files, turn one raw listing into a canonical record) and the
// shared plumbing they use: file discovery, JSON/NDJSON loading and
// copy-on-create record construction.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

// Normalizer is implemented once per marketplace.
type Normalizer interface {
	Source() model.Source
	// Patterns are the lower-case filename substrings of this source's raw files.
	Patterns() []string
	Extract(ctx context.Context, path string) (*LoadResult, error)
	Transform(raw model.RawListing) (*model.CanonicalRecord, error)
}

// ErrUnidentifiable is returned for a listing with neither a title nor a brand.
var ErrUnidentifiable = errors.New("listing has no title and no recognizable brand")

// TransformError wraps a failure to normalize one raw listing.
type TransformError struct {
	Source model.Source
	Ref    string // title, ad id or url of the offending listing
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s listing %q: %v", e.Source, e.Ref, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// SafeTransform runs n.Transform, converting both returned errors and
// panics into a *TransformError so one bad listing never aborts a run.
func SafeTransform(n Normalizer, raw model.RawListing) (rec *model.CanonicalRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &TransformError{Source: n.Source(), Ref: ListingRef(raw), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	rec, err = n.Transform(raw)
	if err != nil {
		var te *TransformError
		if !errors.As(err, &te) {
			err = &TransformError{Source: n.Source(), Ref: ListingRef(raw), Err: err}
		}
		return nil, err
	}
	if rec == nil {
		return nil, &TransformError{Source: n.Source(), Ref: ListingRef(raw), Err: errors.New("no record produced")}
	}
	return rec, nil
}

// ListingRef picks a human-readable reference for log lines.
func ListingRef(raw model.RawListing) string {
	for _, key := range []string{"title", "name", "ad_id", "url", "product_url"} {
		if v := raw.String(key); v != "" {
			return v
		}
	}
	return "<unidentified>"
}
