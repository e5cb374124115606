package task

import (
	"sort"
	"strconv"
	"strings"
)

// pathFiller is used for missing trailing components and for non-numeric ones.
// It is 1, not 0, so "2.0" sorts before "2".
const pathFiller = 1

// ParsePath splits an identifier into its numeric path. Only the part before the
// first underscore is considered; any non-numeric component counts as 1.
func ParsePath(id string) []int {
	head, _, _ := strings.Cut(id, "_")
	parts := strings.Split(head, ".")
	path := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strings.HasPrefix(p, "+") {
			n = pathFiller
		}
		path[i] = n
	}
	return path
}

// CompareIDs orders two identifiers by numeric path, padding the shorter path
// with 1. Equal padded paths fall back to path length and then raw text, which
// keeps the order total.
func CompareIDs(a, b string) int {
	if a == b {
		return 0
	}
	pa, pb := ParsePath(a), ParsePath(b)
	n := max(len(pa), len(pb))
	for i := range n {
		x, y := pathFiller, pathFiller
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	if len(pa) != len(pb) {
		if len(pa) < len(pb) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// SortIDs sorts identifiers in place by CompareIDs.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return CompareIDs(ids[i], ids[j]) < 0
	})
}

// ParentPath returns the dotted parent of an identifier ("1.2.3" -> "1.2"),
// or "" when the identifier has a single component.
func ParentPath(id string) string {
	i := strings.LastIndex(id, ".")
	if i <= 0 {
		return ""
	}
	return id[:i]
}
