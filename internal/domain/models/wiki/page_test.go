package wiki

import "testing"

func TestPageClone_SharesNothing(t *testing.T) {
	str := func(s string) *string { return &s }
	p := &Page{
		ID:             "p1",
		Path:           "/a",
		RevisionID:     str("r1"),
		RedirectTo:     str("/b"),
		GrantedUsers:   []string{"u1"},
		GrantedGroup:   str("g1"),
		Creator:        str("u1"),
		LastUpdateUser: str("u2"),
		Liker:          []string{"u3"},
		SeenUsers:      []string{"u4"},
		Extended:       map[string]any{SlackChannelKey: "general"},
		LatestRevision: str("body"),
		RevisionData:   &Revision{ID: "r1", Author: str("u1")},
	}

	c := p.Clone()
	*c.RevisionID = "changed"
	*c.RedirectTo = "changed"
	*c.GrantedGroup = "changed"
	*c.Creator = "changed"
	*c.LastUpdateUser = "changed"
	*c.LatestRevision = "changed"
	*c.RevisionData.Author = "changed"
	c.RevisionData.ID = "changed"
	c.GrantedUsers[0] = "changed"
	c.Liker[0] = "changed"
	c.SeenUsers[0] = "changed"
	c.Extended[SlackChannelKey] = "changed"

	checks := map[string]string{
		"revision id":     *p.RevisionID,
		"redirect to":     *p.RedirectTo,
		"granted group":   *p.GrantedGroup,
		"creator":         *p.Creator,
		"last updater":    *p.LastUpdateUser,
		"latest revision": *p.LatestRevision,
		"revision author": *p.RevisionData.Author,
		"revision data":   p.RevisionData.ID,
		"granted users":   p.GrantedUsers[0],
		"liker":           p.Liker[0],
		"seen users":      p.SeenUsers[0],
		"slack":           p.SlackChannels(),
	}
	for name, got := range checks {
		if got == "changed" {
			t.Errorf("%s aliases the original", name)
		}
	}
}

func TestPageClone_KeepsNil(t *testing.T) {
	c := (&Page{ID: "p1"}).Clone()
	if c.RevisionID != nil || c.RedirectTo != nil || c.Creator != nil || c.RevisionData != nil {
		t.Errorf("nil pointers should stay nil: %+v", c)
	}
}
