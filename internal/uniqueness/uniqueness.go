// Package uniqueness checks natural-key candidates against storage and reports
// every conflicting field in a single error.
//
// The check and the write that follows it are not atomic. Unique indexes in the
// store remain the final guard; see repo.classify.
package uniqueness

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/inventory/internal/apperr"
)

type Candidate struct {
	Field string
	Value string
}

func Field(name, value string) Candidate {
	return Candidate{Field: name, Value: value}
}

// Prober reports whether a row other than excludeID already holds value in field.
// excludeID 0 means no row is excluded.
type Prober interface {
	Taken(ctx context.Context, field, value string, excludeID uint) (bool, error)
}

type ProberFunc func(ctx context.Context, field, value string, excludeID uint) (bool, error)

func (f ProberFunc) Taken(ctx context.Context, field, value string, excludeID uint) (bool, error) {
	return f(ctx, field, value, excludeID)
}

type Validator struct {
	probe Prober
}

func New(p Prober) *Validator {
	return &Validator{probe: p}
}

// Check probes candidates in the given order. It returns a
// *apperr.DuplicateCredentialError naming all conflicts, nil when there are
// none, or the probe failure.
func (v *Validator) Check(ctx context.Context, excludeID uint, candidates ...Candidate) error {
	var conflicts []apperr.Duplicate
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		if _, ok := seen[c.Field]; ok {
			continue
		}
		seen[c.Field] = struct{}{}

		taken, err := v.probe.Taken(ctx, c.Field, c.Value, excludeID)
		if err != nil {
			return fmt.Errorf("uniqueness: probe %s: %w", c.Field, err)
		}
		if taken {
			conflicts = append(conflicts, apperr.Duplicate{Field: c.Field, Value: c.Value})
		}
	}

	if len(conflicts) == 0 {
		return nil
	}
	return &apperr.DuplicateCredentialError{Conflicts: conflicts}
}
