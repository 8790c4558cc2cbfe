package parser

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/vaultsearch/internal/vault"
)

// Note is a parsed markdown document: frontmatter metadata plus the
// body with the frontmatter block stripped
type Note struct {
	Path     string
	Title    string
	Aliases  []string
	Tags     []string
	Category string
	Body     string
}

// frontmatter mirrors the YAML keys commonly found at the top of
// vault notes. Unknown keys are ignored.
type frontmatter struct {
	Title    string   `yaml:"title"`
	Aliases  []string `yaml:"aliases"`
	Tags     []string `yaml:"tags"`
	Category string   `yaml:"category"`
}

const frontmatterDelimiter = "---"

// Parser extracts metadata from markdown notes
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// Parse splits a note into frontmatter metadata and body. A malformed
// frontmatter block is non-fatal: the note is treated as having none,
// so a broken header never hides a document from the index.
func (p *Parser) Parse(path, content string) *Note {
	note := &Note{
		Path: path,
		Body: content,
	}

	if fm, body, ok := splitFrontmatter(content); ok {
		var meta frontmatter
		if err := yaml.Unmarshal([]byte(fm), &meta); err == nil {
			note.Title = strings.TrimSpace(meta.Title)
			note.Aliases = trimAll(meta.Aliases)
			note.Tags = trimAll(meta.Tags)
			note.Category = strings.TrimSpace(meta.Category)
			note.Body = body
		}
	}

	if note.Title == "" {
		note.Title = firstHeading(note.Body)
	}
	if note.Title == "" {
		note.Title = vault.Title(path)
	}

	return note
}

// splitFrontmatter returns the YAML block between the leading ---
// delimiters and the remaining body. The opening delimiter must be the
// very first line of the document.
func splitFrontmatter(content string) (meta, body string, ok bool) {
	rest, found := strings.CutPrefix(content, frontmatterDelimiter+"\n")
	if !found {
		return "", "", false
	}

	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return "", "", false
	}

	meta = rest[:end]
	body = rest[end+len("\n"+frontmatterDelimiter):]
	body = strings.TrimPrefix(body, "\n")
	return meta, body, true
}

// firstHeading returns the text of the first level-one markdown
// heading, or empty if the body has none before any other heading
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if after, found := strings.CutPrefix(trimmed, "# "); found {
			return strings.TrimSpace(after)
		}
		if strings.HasPrefix(trimmed, "#") {
			// A deeper heading first means the note has no h1 title
			return ""
		}
	}
	return ""
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
