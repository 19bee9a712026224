package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed content/*.md
var contentFS embed.FS

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
			parser.WithAutoHeadingID(),
		),
	)

	copyPolicyOnce sync.Once
	copyPolicy     *bluemonday.Policy
)

// headingID is the shape of the anchors the menu links to.
var headingID = regexp.MustCompile(`^[a-z0-9-]+$`)

func copySanitizer() *bluemonday.Policy {
	copyPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("id").Matching(headingID).OnElements(
			"h1", "h2", "h3", "h4",
		)
		policy.AddTargetBlankToFullyQualifiedLinks(true)

		copyPolicy = policy
	})

	return copyPolicy
}

// RenderMarkdown converts page copy to sanitized HTML.
func RenderMarkdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	clean := copySanitizer().SanitizeBytes(buf.Bytes())

	// The output has been through the sanitizer above.
	return template.HTML(clean), nil //nolint:gosec
}

// Pages is the rendered copy, keyed by file name without extension.
type Pages struct {
	pages map[string]template.HTML
}

// LoadPages renders every embedded Markdown file.
func LoadPages() (*Pages, error) {
	return loadPages(contentFS, "content")
}

func loadPages(fsys fs.FS, dir string) (*Pages, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read page copy: %w", err)
	}

	p := &Pages{pages: make(map[string]template.HTML, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".md" {
			continue
		}

		src, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		html, err := RenderMarkdown(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		p.pages[strings.TrimSuffix(name, ".md")] = html
	}

	return p, nil
}

// Get returns the copy named name, or the empty string.
func (p *Pages) Get(name string) template.HTML {
	return p.pages[name]
}
