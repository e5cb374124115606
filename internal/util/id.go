// Package util provides shared utility functions.
package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Session identifier prefixes.
const (
	PlanPrefix = "plan-"
	ExecPrefix = "exec-"

	// MaxAmbiguousCandidates is the max number of candidates to show in ambiguous error.
	MaxAmbiguousCandidates = 5
)

// Errors returned by ID resolution functions.
var (
	ErrAmbiguousID = errors.New("ambiguous ID prefix")
	ErrNotFound    = errors.New("not found")
)

// NewID returns prefix followed by 8 hex characters, e.g. "plan-1a2b3c4d".
func NewID(prefix string) string {
	return prefix + uuid.New().String()[:8]
}

// ResolvePrefix resolves idOrPrefix against known IDs.
//
// Resolution rules:
//  1. An exact match wins.
//  2. If idOrPrefix is the prefix of exactly one ID, return that ID.
//  3. If multiple match, return ErrAmbiguousID with candidates.
//  4. If none match, return ErrNotFound.
func ResolvePrefix(idOrPrefix string, known []string, entityType string) (string, error) {
	if idOrPrefix == "" {
		return "", fmt.Errorf("%s ID: %w", entityType, ErrNotFound)
	}
	var candidates []string
	for _, id := range known {
		if id == idOrPrefix {
			return id, nil
		}
		if strings.HasPrefix(id, idOrPrefix) {
			candidates = append(candidates, id)
		}
	}
	return resolveFromCandidates(idOrPrefix, candidates, entityType)
}

// resolveFromCandidates handles the common resolution logic.
func resolveFromCandidates(prefix string, candidates []string, entityType string) (string, error) {
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%s with prefix %q: %w", entityType, prefix, ErrNotFound)
	case 1:
		return candidates[0], nil
	default:
		shown := candidates
		if len(shown) > MaxAmbiguousCandidates {
			shown = shown[:MaxAmbiguousCandidates]
		}
		return "", fmt.Errorf("%w: prefix %q matches %d %ss: %v",
			ErrAmbiguousID, prefix, len(candidates), entityType, shown)
	}
}
