package wiki

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/pagepath"
	"wikitree/internal/service/wiki/format"
)

// MaxImportEntrySize bounds a single decompressed archive entry.
const MaxImportEntrySize = 10 << 20

// ImportArchive creates a page for every convertible entry of a zip archive.
// Entries land under basePath by their archive path without extension; a
// front matter `path:` overrides that, relative to basePath unless absolute.
// Each page is created in its own transaction, so one bad entry does not
// undo the others. Occupied paths are reported as skipped.
func (s *Service) ImportArchive(ctx context.Context, user *wiki.User, basePath string, archive []byte) (*wikiSvc.ImportResult, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	basePath = pagepath.Normalize(basePath)

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid zip archive: %v", err)}
	}

	files := slices.Clone(zr.File)
	slices.SortFunc(files, func(a, b *zip.File) int { return strings.Compare(a.Name, b.Name) })

	result := &wikiSvc.ImportResult{
		Created: []wikiSvc.ImportedPage{},
		Skipped: []wikiSvc.ImportedPage{},
		Errors:  []wikiSvc.ImportError{},
	}
	for _, f := range files {
		if f.FileInfo().IsDir() || ignoredEntry(f.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := s.importEntry(ctx, user, basePath, f)
		var conflict *domain.ConflictError
		switch {
		case errors.As(err, &conflict):
			entry.ID = conflict.ResourceID
			result.Skipped = append(result.Skipped, entry)
		case err != nil:
			result.Errors = append(result.Errors, wikiSvc.ImportError{File: f.Name, Error: err.Error()})
		default:
			result.Created = append(result.Created, entry)
		}
	}

	s.Logger.Info("archive imported",
		"base_path", basePath,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors),
	)
	return result, nil
}

func ignoredEntry(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), ".")
}

func (s *Service) importEntry(ctx context.Context, user *wiki.User, basePath string, f *zip.File) (wikiSvc.ImportedPage, error) {
	entry := wikiSvc.ImportedPage{File: f.Name}
	if f.UncompressedSize64 > MaxImportEntrySize {
		return entry, fmt.Errorf("file exceeds %d bytes", MaxImportEntrySize)
	}

	rc, err := f.Open()
	if err != nil {
		return entry, fmt.Errorf("open entry: %w", err)
	}
	raw, err := io.ReadAll(io.LimitReader(rc, MaxImportEntrySize))
	rc.Close()
	if err != nil {
		return entry, fmt.Errorf("read entry: %w", err)
	}

	fm, body, err := format.ParseFrontMatter(raw)
	if err != nil {
		return entry, err
	}
	markdown, ok, err := s.Formats.ConvertFile(ctx, f.Name, []byte(body))
	if !ok {
		return entry, fmt.Errorf("unsupported file type %q", path.Ext(f.Name))
	}
	if err != nil {
		return entry, err
	}

	entry.Path, err = importPath(basePath, f.Name, fm)
	if err != nil {
		return entry, err
	}
	page, err := s.Create(ctx, user, &wikiSvc.CreatePageRequest{Path: entry.Path, Body: markdown})
	if err != nil {
		return entry, err
	}
	entry.ID = page.ID

	if fm != nil && len(fm.Tags) > 0 {
		if _, err := s.UpdateTags(ctx, user, page.ID, fm.Tags); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// importPath places an entry. Relative locations must stay beneath basePath
// once ".." segments are resolved.
func importPath(basePath, name string, fm *format.FrontMatter) (string, error) {
	rel := strings.TrimSuffix(name, path.Ext(name))
	if fm != nil && fm.Path != "" {
		if strings.HasPrefix(fm.Path, pagepath.Separator) {
			return pagepath.Normalize(fm.Path), nil
		}
		rel = fm.Path
	}
	p := pagepath.Normalize(path.Join(basePath, rel))
	if !pagepath.HasDescendantPath(basePath, p) {
		return "", &domain.ValidationError{Message: fmt.Sprintf("path %q resolves outside %s", rel, basePath)}
	}
	return p, nil
}
