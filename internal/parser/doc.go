// Package parser extracts structured metadata from markdown notes.
//
// Vault notes commonly open with a YAML frontmatter block carrying a
// title, aliases, tags, and a category. The parser splits that block
// from the body, falls back to the first level-one heading and then
// the filename when no title is declared, and never fails a document:
// malformed frontmatter simply yields a note without metadata.
//
// Notes whose frontmatter declares a category or aliases double as
// entity definitions, which the indexer embeds into a separate
// namespace for entity-aware search.
package parser
