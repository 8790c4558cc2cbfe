package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrontmatter(t *testing.T) {
	content := `---
title: Garden Plan
aliases:
  - The Garden
  - Backyard Project
tags:
  - gardening
category: project
---

# Heading that loses to frontmatter

Planting schedule below.
`

	note := New().Parse("projects/garden.md", content)

	assert.Equal(t, "Garden Plan", note.Title)
	assert.Equal(t, []string{"The Garden", "Backyard Project"}, note.Aliases)
	assert.Equal(t, []string{"gardening"}, note.Tags)
	assert.Equal(t, "project", note.Category)
	assert.NotContains(t, note.Body, "aliases:")
	assert.Contains(t, note.Body, "Planting schedule below.")
}

func TestParseNoFrontmatter(t *testing.T) {
	content := "# My Heading\n\nJust a body.\n"

	note := New().Parse("notes/plain.md", content)

	assert.Equal(t, "My Heading", note.Title)
	assert.Empty(t, note.Aliases)
	assert.Equal(t, "", note.Category)
	assert.Equal(t, content, note.Body)
}

func TestParseTitleFallsBackToFilename(t *testing.T) {
	note := New().Parse("daily/2025-03-01.md", "no headings here\n")
	assert.Equal(t, "2025-03-01", note.Title)
}

func TestParseDeepHeadingIsNotATitle(t *testing.T) {
	note := New().Parse("notes/outline.md", "## Section\n\n# Too Late\n")
	assert.Equal(t, "outline", note.Title)
}

func TestParseMalformedFrontmatter(t *testing.T) {
	content := "---\ntitle: [unclosed\n---\n\nBody survives.\n"

	note := New().Parse("notes/broken.md", content)

	// Malformed YAML must not hide the note
	assert.Equal(t, "broken", note.Title)
	assert.Equal(t, content, note.Body)
}

func TestParseUnterminatedFrontmatter(t *testing.T) {
	content := "---\ntitle: Never Closed\n\nBody text.\n"

	note := New().Parse("notes/open.md", content)

	assert.Equal(t, "open", note.Title)
	assert.Equal(t, content, note.Body)
}

func TestParseDelimiterMustOpenDocument(t *testing.T) {
	content := "Intro line.\n---\ntitle: Not Frontmatter\n---\n"

	note := New().Parse("notes/middle.md", content)

	assert.Equal(t, "middle", note.Title)
	assert.Equal(t, content, note.Body)
}

func TestParseTrimsMetadata(t *testing.T) {
	content := "---\ntitle: \"  Padded  \"\naliases: [\" one \", \"\", \"two\"]\n---\nbody\n"

	note := New().Parse("notes/padded.md", content)

	assert.Equal(t, "Padded", note.Title)
	assert.Equal(t, []string{"one", "two"}, note.Aliases)
}
