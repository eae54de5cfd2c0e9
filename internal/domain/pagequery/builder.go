package pagequery

import (
	"slices"
	"strings"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/pagepath"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Builder accumulates page filters. Each method ANDs one condition onto the
// query; alternatives inside a single method are ORed.
type Builder struct {
	q Query
}

// New returns a builder that matches every page.
func New() *Builder {
	return &Builder{}
}

// Query returns the accumulated query. Later builder calls do not affect it.
func (b *Builder) Query() *Query {
	q := b.q
	q.Conditions = slices.Clone(b.q.Conditions)
	return &q
}

// Clone returns an independent copy of b.
func (b *Builder) Clone() *Builder {
	return &Builder{q: *b.Query()}
}

// Where ANDs an arbitrary condition onto the query.
func (b *Builder) Where(c Condition) *Builder {
	b.q.Conditions = append(b.q.Conditions, c)
	return b
}

func (b *Builder) whereTerm(t Term) *Builder {
	return b.Where(Condition{{t}})
}

// ExcludeTrashed keeps pages whose status is unset or published.
func (b *Builder) ExcludeTrashed() *Builder {
	return b.Where(Condition{
		{IsNull(FieldStatus)},
		{Eq(FieldStatus, string(wiki.StatusPublished))},
	})
}

// ExcludeRedirect keeps pages that are not redirect stubs.
func (b *Builder) ExcludeRedirect() *Builder {
	return b.whereTerm(IsNull(FieldRedirectTo))
}

// ListByStartWith matches pages whose path starts with p literally. When p
// ends with a separator the page at p without it matches too. Root is a no-op.
func (b *Builder) ListByStartWith(p string) *Builder {
	if pagepath.IsTopPage(p) {
		return b
	}

	var cond Condition
	if strings.HasSuffix(p, pagepath.Separator) {
		cond = append(cond, Clause{Eq(FieldPath, strings.TrimSuffix(p, pagepath.Separator))})
	}
	cond = append(cond, Clause{HasPrefix(FieldPath, p)})
	return b.Where(cond)
}

// ListWithDescendants matches the page at p and every page beneath it,
// without matching siblings that merely share a textual prefix.
func (b *Builder) ListWithDescendants(p string) *Builder {
	return b.ListByStartWith(pagepath.WithTrailingSeparator(p))
}

// FilterByViewer keeps pages the viewer may see. Public and unset grants
// always pass. The show flags widen the filter for listing policies.
func (b *Builder) FilterByViewer(user *wiki.User, groupIDs []string, showAnyoneKnowsLink, showOwnerRestricted, showGroupRestricted bool) *Builder {
	cond := Condition{
		{IsNull(FieldGrant)},
		{Eq(FieldGrant, wiki.GrantPublic)},
	}

	if showAnyoneKnowsLink {
		cond = append(cond, Clause{Eq(FieldGrant, wiki.GrantRestricted)})
	}

	if showOwnerRestricted {
		cond = append(cond,
			Clause{Eq(FieldGrant, wiki.GrantSpecified)},
			Clause{Eq(FieldGrant, wiki.GrantOwner)},
		)
	} else if user != nil {
		cond = append(cond,
			Clause{Eq(FieldGrant, wiki.GrantSpecified), Contains(FieldGrantedUsers, user.ID)},
			Clause{Eq(FieldGrant, wiki.GrantOwner), Contains(FieldGrantedUsers, user.ID)},
		)
	}

	if showGroupRestricted {
		cond = append(cond, Clause{Eq(FieldGrant, wiki.GrantUserGroup)})
	} else if len(groupIDs) > 0 {
		cond = append(cond, Clause{
			Eq(FieldGrant, wiki.GrantUserGroup),
			In(FieldGrantedGroup, slices.Clone(groupIDs)),
		})
	}

	return b.Where(cond)
}

// ByID matches a single page id.
func (b *Builder) ByID(id string) *Builder {
	return b.whereTerm(Eq(FieldID, id))
}

// ByIDs matches any of ids.
func (b *Builder) ByIDs(ids []string) *Builder {
	return b.whereTerm(In(FieldID, slices.Clone(ids)))
}

// ByPath matches one exact path.
func (b *Builder) ByPath(p string) *Builder {
	return b.whereTerm(Eq(FieldPath, p))
}

// ByPaths matches any of paths.
func (b *Builder) ByPaths(paths []string) *Builder {
	return b.whereTerm(In(FieldPath, slices.Clone(paths)))
}

// ByRedirectTo matches stubs forwarding to p.
func (b *Builder) ByRedirectTo(p string) *Builder {
	return b.whereTerm(Eq(FieldRedirectTo, p))
}

// ByCreator matches pages created by userID.
func (b *Builder) ByCreator(userID string) *Builder {
	return b.whereTerm(Eq(FieldCreator, userID))
}

// ByGrantedGroup matches pages granted to groupID.
func (b *Builder) ByGrantedGroup(groupID string) *Builder {
	return b.whereTerm(Eq(FieldGrantedGroup, groupID))
}

// Sort orders results by key.
func (b *Builder) Sort(key SortKey, desc bool) *Builder {
	b.q.Sort = key
	b.q.Desc = desc
	return b
}

// Paginate applies opts' sort, offset and limit.
func (b *Builder) Paginate(opts ListOptions) *Builder {
	opts = opts.Normalize()
	b.q.Sort = opts.Sort
	b.q.Desc = opts.Desc
	b.q.Offset = opts.Offset
	b.q.Limit = opts.Limit
	return b
}

// PopulateForList attaches the data a listing shows.
func (b *Builder) PopulateForList() *Builder {
	b.q.Populate = PopulateList
	return b
}

// PopulateForDetail attaches the current revision for a page view.
func (b *Builder) PopulateForDetail() *Builder {
	b.q.Populate = PopulateDetail
	return b
}

// ListOptions is the single pagination contract shared by every listing.
type ListOptions struct {
	Offset          int     `json:"offset"`
	Limit           int     `json:"limit"`
	Sort            SortKey `json:"sort"`
	Desc            bool    `json:"desc"`
	IncludeTrashed  bool    `json:"include_trashed"`
	IncludeRedirect bool    `json:"include_redirect"`
}

// DefaultListOptions sorts by most recently updated first.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: DefaultLimit, Sort: SortUpdatedAt, Desc: true}
}

// Normalize fills defaults and clamps out-of-range values.
func (o ListOptions) Normalize() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if !o.Sort.Valid() {
		o.Sort = SortUpdatedAt
		o.Desc = true
	}
	return o
}
