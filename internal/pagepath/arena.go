package pagepath

import (
	"iter"
	"strings"
)

// Arena interns path segments so paths become slices of small integers.
// Ancestor and descendant checks then compare segment ids, which keeps
// segment boundaries exact: /a/b and /a/bc share no segment after /a.
//
// An Arena is not safe for concurrent use. Create one per operation.
type Arena struct {
	ids   map[string]int32
	names []string
}

// Path is a parsed page path whose segments live in an Arena.
type Path struct {
	arena *Arena
	segs  []int32
}

// NewArena returns an empty segment arena.
func NewArena() *Arena {
	return &Arena{ids: make(map[string]int32)}
}

func (a *Arena) intern(seg string) int32 {
	if id, ok := a.ids[seg]; ok {
		return id
	}
	id := int32(len(a.names))
	a.ids[seg] = id
	a.names = append(a.names, seg)
	return id
}

// Parse splits p on the separator, dropping empty segments.
func (a *Arena) Parse(p string) Path {
	parts := strings.Split(p, Separator)
	segs := make([]int32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		segs = append(segs, a.intern(part))
	}
	return Path{arena: a, segs: segs}
}

// Depth is the number of segments. Root has depth 0.
func (p Path) Depth() int {
	return len(p.segs)
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool {
	return len(p.segs) == 0
}

// Parent returns p without its last segment. The second result is false for root.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return p, false
	}
	return Path{arena: p.arena, segs: p.segs[:len(p.segs)-1]}, true
}

// Ancestors yields strict ancestors from the nearest parent to root.
func (p Path) Ancestors() iter.Seq[Path] {
	return func(yield func(Path) bool) {
		cur := p
		for {
			parent, ok := cur.Parent()
			if !ok || !yield(parent) {
				return
			}
			cur = parent
		}
	}
}

// IsAncestorOf reports whether p is a strict ancestor of q.
// Both paths must come from the same Arena.
func (p Path) IsAncestorOf(q Path) bool {
	if len(p.segs) >= len(q.segs) {
		return false
	}
	for i, id := range p.segs {
		if q.segs[i] != id {
			return false
		}
	}
	return true
}

// Contains reports whether q equals p or is beneath it.
func (p Path) Contains(q Path) bool {
	if len(p.segs) == len(q.segs) {
		for i, id := range p.segs {
			if q.segs[i] != id {
				return false
			}
		}
		return true
	}
	return p.IsAncestorOf(q)
}

// String renders p with a leading separator.
func (p Path) String() string {
	if p.IsRoot() {
		return Separator
	}
	var b strings.Builder
	for _, id := range p.segs {
		b.WriteString(Separator)
		b.WriteString(p.arena.names[id])
	}
	return b.String()
}
