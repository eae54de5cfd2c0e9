package pagequery

import (
	"regexp"
	"slices"
	"strings"

	"wikitree/internal/domain/models/wiki"
)

// Field names a filterable page attribute.
type Field string

const (
	FieldID           Field = "id"
	FieldPath         Field = "path"
	FieldStatus       Field = "status"
	FieldRedirectTo   Field = "redirect_to"
	FieldGrant        Field = "grant"
	FieldGrantedUsers Field = "granted_users"
	FieldGrantedGroup Field = "granted_group"
	FieldCreator      Field = "creator"
)

// Op is the comparison a Term applies to its Field.
type Op int

const (
	OpEq        Op = iota // field equals Value
	OpIn                  // field is one of Value ([]string or []wiki.Grant)
	OpIsNull              // field is unset
	OpHasPrefix           // field starts with Value, taken literally
	OpContains            // array field contains Value
)

// Term is a single predicate.
type Term struct {
	Field Field
	Op    Op
	Value any

	// set for OpHasPrefix, used by in-memory matching
	pattern *regexp.Regexp
}

// Clause is a conjunction of terms.
type Clause []Term

// Condition is a disjunction of clauses. A query ANDs its conditions.
type Condition []Clause

func Eq(f Field, v any) Term       { return Term{Field: f, Op: OpEq, Value: v} }
func In(f Field, v any) Term       { return Term{Field: f, Op: OpIn, Value: v} }
func IsNull(f Field) Term          { return Term{Field: f, Op: OpIsNull} }
func Contains(f Field, v any) Term { return Term{Field: f, Op: OpContains, Value: v} }

// HasPrefix matches values starting with prefix. The prefix is escaped once;
// a pattern that still fails to compile is a bug and panics.
func HasPrefix(f Field, prefix string) Term {
	return Term{
		Field:   f,
		Op:      OpHasPrefix,
		Value:   prefix,
		pattern: regexp.MustCompile("^" + regexp.QuoteMeta(prefix)),
	}
}

// SortKey is a page attribute listings may be ordered by.
type SortKey string

const (
	SortUpdatedAt SortKey = "updatedAt"
	SortCreatedAt SortKey = "createdAt"
	SortPath      SortKey = "path"
)

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	switch k {
	case SortUpdatedAt, SortCreatedAt, SortPath:
		return true
	}
	return false
}

// Populate selects how much related data a read attaches to each page.
type Populate int

const (
	PopulateNone Populate = iota
	PopulateList
	PopulateDetail
)

// Query is the compiled form of a Builder, consumed by repositories.
// Limit 0 means unlimited.
type Query struct {
	Conditions []Condition
	Sort       SortKey
	Desc       bool
	Offset     int
	Limit      int
	Populate   Populate
}

// Match reports whether p satisfies every condition of q.
func (q *Query) Match(p *wiki.Page) bool {
	for _, cond := range q.Conditions {
		if !cond.Match(p) {
			return false
		}
	}
	return true
}

// Match reports whether any clause of c holds for p. An empty condition holds.
func (c Condition) Match(p *wiki.Page) bool {
	if len(c) == 0 {
		return true
	}
	for _, clause := range c {
		if clause.Match(p) {
			return true
		}
	}
	return false
}

// Match reports whether every term of c holds for p.
func (c Clause) Match(p *wiki.Page) bool {
	for _, t := range c {
		if !t.Match(p) {
			return false
		}
	}
	return true
}

// Match evaluates t against p.
func (t Term) Match(p *wiki.Page) bool {
	switch t.Field {
	case FieldGrant:
		return matchGrant(t, p.Grant)
	case FieldGrantedUsers:
		switch t.Op {
		case OpContains:
			v, _ := t.Value.(string)
			return slices.Contains(p.GrantedUsers, v)
		case OpIsNull:
			return len(p.GrantedUsers) == 0
		}
		return false
	}

	val, set := stringField(t.Field, p)
	switch t.Op {
	case OpIsNull:
		return !set
	case OpEq:
		return set && val == toString(t.Value)
	case OpIn:
		return set && slices.Contains(toStrings(t.Value), val)
	case OpHasPrefix:
		if !set {
			return false
		}
		if t.pattern != nil {
			return t.pattern.MatchString(val)
		}
		return strings.HasPrefix(val, toString(t.Value))
	}
	return false
}

func matchGrant(t Term, g wiki.Grant) bool {
	switch t.Op {
	case OpIsNull:
		return g == 0
	case OpEq:
		want, _ := t.Value.(wiki.Grant)
		return g != 0 && g == want
	case OpIn:
		grants, _ := t.Value.([]wiki.Grant)
		return g != 0 && slices.Contains(grants, g)
	}
	return false
}

func stringField(f Field, p *wiki.Page) (string, bool) {
	switch f {
	case FieldID:
		return p.ID, p.ID != ""
	case FieldPath:
		return p.Path, true
	case FieldStatus:
		return string(p.Status), p.Status != ""
	case FieldRedirectTo:
		return deref(p.RedirectTo)
	case FieldGrantedGroup:
		return deref(p.GrantedGroup)
	case FieldCreator:
		return deref(p.Creator)
	}
	return "", false
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case wiki.Status:
		return string(x)
	}
	return ""
}

func toStrings(v any) []string {
	ss, _ := v.([]string)
	return ss
}
