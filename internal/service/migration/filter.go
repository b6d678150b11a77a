package migration

import (
	"path"
	"strings"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// TableFilter selects tables by glob patterns on "schema.table", compared
// case-insensitively. An empty include list selects every table; exclude
// patterns win over include patterns.
type TableFilter struct {
	include []string
	exclude []string
}

// NewTableFilter validates the patterns.
func NewTableFilter(include, exclude []string) (*TableFilter, error) {
	f := &TableFilter{}
	for _, p := range include {
		lp, err := normalizePattern(p)
		if err != nil {
			return nil, err
		}
		f.include = append(f.include, lp)
	}
	for _, p := range exclude {
		lp, err := normalizePattern(p)
		if err != nil {
			return nil, err
		}
		f.exclude = append(f.exclude, lp)
	}
	return f, nil
}

func normalizePattern(p string) (string, error) {
	lp := strings.ToLower(strings.TrimSpace(p))
	if lp == "" {
		return "", domain.ErrValidation("empty table pattern")
	}
	if !strings.Contains(lp, ".") {
		lp = "*." + lp
	}
	if _, err := path.Match(lp, ""); err != nil {
		return "", domain.ErrValidation("invalid table pattern %q: %v", p, err)
	}
	return lp, nil
}

// Match reports whether t passes the filter.
func (f *TableFilter) Match(t domain.TableIdentifier) bool {
	if f == nil {
		return true
	}
	name := strings.ToLower(t.String())
	for _, p := range f.exclude {
		if ok, _ := path.Match(p, name); ok {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Apply returns the matching tables in their original order.
func (f *TableFilter) Apply(tables []domain.TableIdentifier) []domain.TableIdentifier {
	if f == nil || (len(f.include) == 0 && len(f.exclude) == 0) {
		return tables
	}
	out := make([]domain.TableIdentifier, 0, len(tables))
	for _, t := range tables {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
