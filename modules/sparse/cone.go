package sparse

import "strings"

// ConeIndex holds the two hash sets the cone dialect uses to classify a
// path in O(depth) instead of scanning every pattern: recursive_set (whole
// subtrees that are included) and parent_set (ancestors kept visible so
// their included descendants can be reached).
//
// Invariants (1 and 2 maintained by Insert; 3 by the canonicalization
// PatternList.ConeInsert applies before calling it, with embedded "\n"
// rejected by its callers):
//  1. every member of recursive_set is also a member of parent_set;
//  2. every strict ancestor of any recursive_set member is in parent_set;
//  3. keys are canonical: leading "/", no trailing "/", no "//", no "\n".
type ConeIndex struct {
	recursive map[string]struct{}
	parent    map[string]struct{}
}

func NewConeIndex() *ConeIndex {
	return &ConeIndex{
		recursive: make(map[string]struct{}),
		parent:    make(map[string]struct{}),
	}
}

// Insert adds canon (already canonicalized by the caller) to recursive_set,
// and walks its strict ancestors into parent_set.
func (c *ConeIndex) Insert(canon string) {
	c.recursive[canon] = struct{}{}
	c.parent[canon] = struct{}{}
	for ancestor := range ancestors(canon) {
		c.parent[ancestor] = struct{}{}
	}
}

// ancestors yields every strict ancestor of canon, stripping one trailing
// path component at a time until reaching the root (which is never
// produced; the root has no canonical key of its own).
func ancestors(canon string) func(func(string) bool) {
	return func(yield func(string) bool) {
		p := canon
		for {
			i := strings.LastIndexByte(p, '/')
			if i <= 0 {
				return
			}
			p = p[:i]
			if !yield(p) {
				return
			}
		}
	}
}

// ContainsRecursive reports whether path is an exact member of
// recursive_set.
func (c *ConeIndex) ContainsRecursive(path string) bool {
	_, ok := c.recursive[path]
	return ok
}

// ContainsParent reports whether path is an exact member of parent_set.
func (c *ConeIndex) ContainsParent(path string) bool {
	_, ok := c.parent[path]
	return ok
}

// ContainsParentOfAnyRecursive reports whether some proper prefix of path
// is in recursive_set, walking by trailing-component truncation so the
// total cost is O(depth).
func (c *ConeIndex) ContainsParentOfAnyRecursive(path string) bool {
	p := path
	for {
		i := strings.LastIndexByte(p, '/')
		if i <= 0 {
			return false
		}
		p = p[:i]
		if _, ok := c.recursive[p]; ok {
			return true
		}
	}
}

// RecursiveKeys returns the members of recursive_set in sorted order.
func (c *ConeIndex) RecursiveKeys() []string {
	return sortedKeys(c.recursive)
}

// ParentKeys returns the members of parent_set in sorted order.
func (c *ConeIndex) ParentKeys() []string {
	return sortedKeys(c.parent)
}
