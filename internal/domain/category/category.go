// Package category holds the intent category value object used by the
// similarity router.
package category

import (
	"fmt"

	"github.com/kailas-cloud/routedex/internal/domain"
)

// Category is a named intent with a bank of reference utterances.
// Utterances are immutable for the process lifetime; reference vectors are
// computed lazily by the similarity router and cached there.
type Category struct {
	name       string
	utterances []string
}

// New creates a category. Requires a non-empty name and at least one utterance.
func New(name string, utterances []string) (Category, error) {
	if name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", domain.ErrConfiguration)
	}
	if len(utterances) == 0 {
		return Category{}, fmt.Errorf("%w: category %q has no reference utterances", domain.ErrConfiguration, name)
	}
	utts := make([]string, len(utterances))
	copy(utts, utterances)
	return Category{name: name, utterances: utts}, nil
}

// Name returns the unique category name.
func (c Category) Name() string { return c.name }

// Utterances returns a copy of the reference utterances.
func (c Category) Utterances() []string {
	out := make([]string, len(c.utterances))
	copy(out, c.utterances)
	return out
}

// Len returns the number of reference utterances.
func (c Category) Len() int { return len(c.utterances) }
