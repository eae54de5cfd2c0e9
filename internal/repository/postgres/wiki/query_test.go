package wiki

import (
	"slices"
	"strings"
	"testing"

	models "wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
)

func TestCompileWhere(t *testing.T) {
	user := &models.User{ID: "u1"}
	q := pagequery.New().
		ListWithDescendants("/a.b").
		ExcludeTrashed().
		FilterByViewer(user, []string{"g1"}, false, false, false).
		Query()

	c := &compiler{}
	where, err := c.where(q)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	want := `((path = $1) OR (starts_with(path, $2)))` +
		` AND ((status IS NULL) OR (status = $3))` +
		` AND (("grant" IS NULL) OR ("grant" = $4)` +
		` OR ("grant" = $5 AND $6 = ANY(granted_users))` +
		` OR ("grant" = $7 AND $8 = ANY(granted_users))` +
		` OR ("grant" = $9 AND granted_group = ANY($10)))`
	if where != want {
		t.Errorf("where =\n%s\nwant\n%s", where, want)
	}

	if c.args[0] != "/a.b" || c.args[1] != "/a.b/" {
		t.Errorf("path args = %v, %v", c.args[0], c.args[1])
	}
	if g, ok := c.args[3].(int32); !ok || g != int32(models.GrantPublic) {
		t.Errorf("grant arg = %#v, want int32", c.args[3])
	}
	if groups, ok := c.args[9].([]string); !ok || !slices.Equal(groups, []string{"g1"}) {
		t.Errorf("group arg = %#v", c.args[9])
	}
}

func TestCompileWhere_Empty(t *testing.T) {
	c := &compiler{}
	where, err := c.where(pagequery.New().Query())
	if err != nil {
		t.Fatal(err)
	}
	if where != "TRUE" || len(c.args) != 0 {
		t.Errorf("got %q with %d args", where, len(c.args))
	}
}

func TestCompileWhere_GrantIn(t *testing.T) {
	q := pagequery.New().Where(pagequery.Condition{{
		pagequery.In(pagequery.FieldGrant, []models.Grant{models.GrantOwner, models.GrantSpecified}),
	}}).Query()

	c := &compiler{}
	where, err := c.where(q)
	if err != nil {
		t.Fatal(err)
	}
	if where != `(("grant" = ANY($1)))` {
		t.Errorf("where = %s", where)
	}
	if !slices.Equal(c.args[0].([]int32), []int32{4, 3}) {
		t.Errorf("args = %v", c.args[0])
	}
}

func TestCompileWhere_UnknownField(t *testing.T) {
	q := pagequery.New().Where(pagequery.Condition{{pagequery.Eq("body", "x")}}).Query()
	if _, err := (&compiler{}).where(q); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestOrderAndLimit(t *testing.T) {
	tests := []struct {
		name  string
		q     pagequery.Query
		order string
		limit string
	}{
		{"default", pagequery.Query{}, "ORDER BY path ASC", ""},
		{"updated desc", pagequery.Query{Sort: pagequery.SortUpdatedAt, Desc: true, Limit: 50},
			"ORDER BY updated_at DESC, path DESC", " LIMIT $1"},
		{"path with offset", pagequery.Query{Sort: pagequery.SortPath, Offset: 10, Limit: 5},
			"ORDER BY path ASC", " LIMIT $1 OFFSET $2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderBy(&tt.q); got != tt.order {
				t.Errorf("orderBy = %q, want %q", got, tt.order)
			}
			if got := (&compiler{}).limitOffset(&tt.q); got != tt.limit {
				t.Errorf("limitOffset = %q, want %q", got, tt.limit)
			}
		})
	}
}

func TestInsertPageSQL_SkipsDuplicatePath(t *testing.T) {
	sql := insertPageSQL("dev_pages")
	if !strings.Contains(sql, "INSERT INTO dev_pages") {
		t.Errorf("missing table: %s", sql)
	}
	// RETURNING must follow the conflict clause so a skipped row yields no rows.
	conflict := strings.Index(sql, "ON CONFLICT (path) DO NOTHING")
	returning := strings.Index(sql, "RETURNING id, created_at, updated_at")
	if conflict < 0 || returning < conflict {
		t.Errorf("insert must skip taken paths before RETURNING:\n%s", sql)
	}
}
