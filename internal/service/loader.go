package service

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"docqa/internal/config"
	"docqa/internal/domain"
)

// Loader finds documentation and source files under the configured roots.
type Loader struct {
	cfg config.DocsConfig
}

func NewLoader(cfg config.DocsConfig) *Loader { return &Loader{cfg: cfg} }

// Load expands globs, walks directories and reads every markdown or code file that is not
// skipped. A file's project is the name of the root it was found under.
func (l *Loader) Load(paths []string) ([]domain.Document, error) {
	var docs []domain.Document
	seen := make(map[string]struct{})
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			root := m
			if !info.IsDir() {
				root = filepath.Dir(m)
			}
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if path != m && l.skipDir(d.Name()) {
						return filepath.SkipDir
					}
					return nil
				}
				if _, dup := seen[path]; dup {
					return nil
				}
				doc, ok, err := l.loadFile(root, path, d)
				if err != nil || !ok {
					return err
				}
				seen[path] = struct{}{}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", m, err)
			}
		}
	}
	if len(docs) == 0 {
		return nil, domain.ErrNoDocuments
	}
	return docs, nil
}

func (l *Loader) loadFile(root, path string, d fs.DirEntry) (domain.Document, bool, error) {
	kind, ok := l.kindOf(d.Name())
	if !ok || l.skipFile(d.Name()) {
		return domain.Document{}, false, nil
	}
	info, err := d.Info()
	if err != nil {
		return domain.Document{}, false, err
	}
	if l.cfg.MaxFileKB > 0 && info.Size() > int64(l.cfg.MaxFileKB)*1024 {
		return domain.Document{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, false, err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	project := filepath.Base(root)
	if abs, err := filepath.Abs(root); err == nil {
		project = filepath.Base(abs)
	}
	source := filepath.ToSlash(rel)
	return domain.Document{
		ID:      hashString(project + "/" + source),
		Path:    path,
		Content: string(data),
		Kind:    kind,
		Metadata: map[string]string{
			domain.MetaProject:  project,
			domain.MetaSource:   source,
			domain.MetaFileName: d.Name(),
		},
	}, true, nil
}

func (l *Loader) kindOf(name string) (domain.DocumentKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".md" || ext == ".markdown" {
		return domain.KindMarkdown, true
	}
	if slices.Contains(l.cfg.CodeExtensions, ext) {
		return domain.KindCode, true
	}
	return "", false
}

func (l *Loader) skipDir(name string) bool {
	return slices.Contains(l.cfg.SkipDirs, name)
}

// skipFile matches LICENSE, LICENSE.md, CHANGELOG.md and the like.
func (l *Loader) skipFile(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, s := range l.cfg.SkipFiles {
		if strings.EqualFold(name, s) || strings.EqualFold(stem, s) {
			return true
		}
	}
	return false
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
