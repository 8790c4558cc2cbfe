// Package mcp exposes the retrieval engine over the Model Context
// Protocol on stdio. Tools: index_vault, search_notes, similar_notes,
// index_entities, get_status. Stdout is reserved for the protocol; all
// logging goes to stderr.
package mcp
