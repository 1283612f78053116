package meta

import (
	"fmt"
	"strings"

	"github.com/parizob/Peardox-2.0-sub001/article"
)

// Builder computes document metadata for pages. It is a pure mapping
// from an article (or nil) to tag values; how the tags reach the
// document head is the rendering layer's concern.
type Builder struct {
	siteTitle       string
	siteDescription string
	baseURL         string
}

// NewBuilder creates a Builder with the site-wide defaults
func NewBuilder(siteTitle, siteDescription, baseURL string) *Builder {
	return &Builder{
		siteTitle:       siteTitle,
		siteDescription: siteDescription,
		baseURL:         strings.TrimRight(baseURL, "/"),
	}
}

// Tags returns the full tag map for an article page, or the site
// defaults when a is nil (landing page, or after an article closes).
func (b *Builder) Tags(a *article.Article) map[string]string {
	title := b.siteTitle
	description := b.siteDescription
	url := b.baseURL
	ogType := "website"

	if a != nil {
		title = fmt.Sprintf("%s | %s", a.Title, b.siteTitle)
		description = a.ShortDescription
		url = b.baseURL + ArticlePath(a)
		ogType = "article"
	}

	return map[string]string{
		"title":               title,
		"description":         description,
		"og:title":            title,
		"og:description":      description,
		"og:type":             ogType,
		"og:url":              url,
		"twitter:card":        "summary",
		"twitter:title":       title,
		"twitter:description": description,
	}
}

// ArticlePath builds the canonical deep-link path for an article
func ArticlePath(a *article.Article) string {
	return fmt.Sprintf("/article/%s-%s", a.ArxivID, Slugify(a.Title))
}

// Slugify lowercases a title and collapses non-alphanumeric runs into
// single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
