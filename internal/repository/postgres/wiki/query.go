package wiki

import (
	"fmt"
	"strings"

	models "wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
)

var columns = map[pagequery.Field]string{
	pagequery.FieldID:           "id",
	pagequery.FieldPath:         "path",
	pagequery.FieldStatus:       "status",
	pagequery.FieldRedirectTo:   "redirect_to",
	pagequery.FieldGrant:        `"grant"`,
	pagequery.FieldGrantedUsers: "granted_users",
	pagequery.FieldGrantedGroup: "granted_group",
	pagequery.FieldCreator:      "creator",
}

var sortColumns = map[pagequery.SortKey]string{
	pagequery.SortUpdatedAt: "updated_at",
	pagequery.SortCreatedAt: "created_at",
	pagequery.SortPath:      "path",
}

// compiler turns a pagequery.Query into SQL with positional arguments.
type compiler struct {
	args []any
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

// where renders the WHERE body. An empty query renders TRUE.
func (c *compiler) where(q *pagequery.Query) (string, error) {
	if len(q.Conditions) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(q.Conditions))
	for _, cond := range q.Conditions {
		s, err := c.condition(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND "), nil
}

func (c *compiler) condition(cond pagequery.Condition) (string, error) {
	if len(cond) == 0 {
		return "TRUE", nil
	}
	alts := make([]string, 0, len(cond))
	for _, clause := range cond {
		terms := make([]string, 0, len(clause))
		for _, t := range clause {
			s, err := c.term(t)
			if err != nil {
				return "", err
			}
			terms = append(terms, s)
		}
		alts = append(alts, "("+strings.Join(terms, " AND ")+")")
	}
	return "(" + strings.Join(alts, " OR ") + ")", nil
}

func (c *compiler) term(t pagequery.Term) (string, error) {
	col, ok := columns[t.Field]
	if !ok {
		return "", fmt.Errorf("unknown page field %q", t.Field)
	}

	switch t.Op {
	case pagequery.OpIsNull:
		if t.Field == pagequery.FieldGrantedUsers {
			return "cardinality(granted_users) = 0", nil
		}
		return col + " IS NULL", nil
	case pagequery.OpEq:
		return col + " = " + c.bind(sqlValue(t.Value)), nil
	case pagequery.OpIn:
		return col + " = ANY(" + c.bind(sqlValue(t.Value)) + ")", nil
	case pagequery.OpHasPrefix:
		return "starts_with(" + col + ", " + c.bind(t.Value) + ")", nil
	case pagequery.OpContains:
		return c.bind(t.Value) + " = ANY(" + col + ")", nil
	}
	return "", fmt.Errorf("unsupported operator %d on %s", t.Op, t.Field)
}

// sqlValue converts domain enums into types pgx encodes directly.
func sqlValue(v any) any {
	switch x := v.(type) {
	case models.Grant:
		return int32(x)
	case []models.Grant:
		out := make([]int32, len(x))
		for i, g := range x {
			out[i] = int32(g)
		}
		return out
	case models.Status:
		return string(x)
	}
	return v
}

// orderBy renders ORDER BY with a path tiebreak in the same direction.
func orderBy(q *pagequery.Query) string {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	col, ok := sortColumns[q.Sort]
	if !ok || col == "path" {
		return "ORDER BY path " + dir
	}
	return fmt.Sprintf("ORDER BY %s %s, path %s", col, dir, dir)
}

// limitOffset renders LIMIT/OFFSET. Limit 0 means unlimited.
func (c *compiler) limitOffset(q *pagequery.Query) string {
	var b strings.Builder
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + c.bind(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + c.bind(q.Offset))
	}
	return b.String()
}
