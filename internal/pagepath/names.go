package pagepath

import (
	"iter"
	"path"
	"regexp"
	"strings"
)

const (
	// Separator delimits path segments. The root page path is a single Separator.
	Separator = "/"

	// TrashRoot is the namespace soft-deleted pages are relocated under.
	TrashRoot = "/trash"

	// MaxPathLength bounds page paths accepted from callers.
	MaxPathLength = 500
)

var (
	trashPattern = regexp.MustCompile(`^/trash(/.*)?$`)
	userPattern  = regexp.MustCompile(`^/user/[^/]+(/.*)?$`)

	notDeletable = []*regexp.Regexp{
		regexp.MustCompile(`^/user/[^/]+$`), // user root page
	}

	// Order is irrelevant; a path is creatable only if none match.
	notCreatable = []*regexp.Regexp{
		regexp.MustCompile(`\^|\$|\*|\+|#|%`),
		regexp.MustCompile(`^/-/.*`),
		regexp.MustCompile(`^/_r/.*`),
		regexp.MustCompile(`^/_apix?(/.*)?`),
		regexp.MustCompile(`^/?https?://.+$`),
		regexp.MustCompile(`/{2,}`),
		regexp.MustCompile(`\s+/\s+`),
		regexp.MustCompile(`.+/edit$`),
		regexp.MustCompile(`.+\.md$`),
		regexp.MustCompile(`^/(installer|register|login|logout|admin|me|files|trash|paste|comments|tags)(/.*|$)`),
	}

	doubledSeparator = regexp.MustCompile(`//`)
	templatePattern  = regexp.MustCompile(`/_{1,2}template$`)
)

const (
	// ChildrenTemplate applies to the immediate children of its directory.
	ChildrenTemplate = "_template"
	// DescendantsTemplate applies to every page beneath its directory.
	DescendantsTemplate = "__template"
)

// IsTopPage reports whether p is the root page.
func IsTopPage(p string) bool {
	return p == Separator
}

// IsTrashPage reports whether p is the trash root or lives beneath it.
func IsTrashPage(p string) bool {
	return trashPattern.MatchString(p)
}

// IsUserPage reports whether p is a user home page or one of its descendants.
func IsUserPage(p string) bool {
	return userPattern.MatchString(p)
}

// IsTemplatePath reports whether p names a template pseudo-page.
func IsTemplatePath(p string) bool {
	return templatePattern.MatchString(p)
}

// UserPagePath returns the home page path of a user.
func UserPagePath(username string) string {
	return "/user/" + username
}

// DeletedPageName maps p into the trash namespace.
//
//	/a/b -> /trash/a/b
func DeletedPageName(p string) string {
	return TrashRoot + Separator + strings.TrimPrefix(p, Separator)
}

// RevertDeletedPageName strips the first trash root occurrence from p.
func RevertDeletedPageName(p string) string {
	return strings.Replace(p, TrashRoot, "", 1)
}

// IsDeletableName reports whether a page at p may be moved to the trash.
func IsDeletableName(p string) bool {
	for _, re := range notDeletable {
		if re.MatchString(p) {
			return false
		}
	}
	return true
}

// IsCreatableName reports whether a page may be created at p.
func IsCreatableName(p string) bool {
	for _, re := range notCreatable {
		if re.MatchString(p) {
			return false
		}
	}
	return true
}

// FixToCreatableName collapses doubled separators. It does not validate.
func FixToCreatableName(p string) string {
	return doubledSeparator.ReplaceAllString(p, Separator)
}

// Normalize adds a leading separator and drops a trailing one (except for root).
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, Separator) {
		p = Separator + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, Separator)
	}
	return p
}

// Dirname returns the parent directory of p. The parent of root is root.
func Dirname(p string) string {
	return path.Dir(p)
}

// Basename returns the last segment of p.
func Basename(p string) string {
	return path.Base(p)
}

// WithTrailingSeparator guarantees p ends with the separator.
func WithTrailingSeparator(p string) string {
	if strings.HasSuffix(p, Separator) {
		return p
	}
	return p + Separator
}

// ExtractAncestorPaths yields every strict ancestor of p from the nearest
// parent up to and including root. Root itself has no ancestors.
//
//	/a/b/c -> /a/b, /a, /
func ExtractAncestorPaths(p string) iter.Seq[string] {
	parsed := NewArena().Parse(p)
	return func(yield func(string) bool) {
		for anc := range parsed.Ancestors() {
			if !yield(anc.String()) {
				return
			}
		}
	}
}

// HasDescendantPath reports whether child sits strictly beneath parent,
// comparing whole segments (so /a/bc is not beneath /a/b).
func HasDescendantPath(parent, child string) bool {
	a := NewArena()
	return a.Parse(parent).IsAncestorOf(a.Parse(child))
}

// ReplacePrefixFold substitutes the leading from of p with to, matching from
// case-insensitively. p is returned unchanged when it does not start with from.
func ReplacePrefixFold(p, from, to string) string {
	if len(p) < len(from) || !strings.EqualFold(p[:len(from)], from) {
		return p
	}
	return to + p[len(from):]
}
