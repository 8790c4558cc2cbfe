package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/vaultsearch/internal/indexer"
	"github.com/dshills/vaultsearch/internal/searcher"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleIndexVault handles the index_vault tool invocation
func (s *Server) handleIndexVault(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progress, err := s.engine.BuildEmbeddingsIndex(ctx, func(p indexer.Progress) {
		if p.Current%100 == 0 {
			log.Printf("indexing %d/%d (%d skipped)", p.Current, p.Total, p.Skipped)
		}
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": true,
		"total":   progress.Total,
		"current": progress.Current,
		"skipped": progress.Skipped,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchNotes handles the search_notes tool invocation
func (s *Server) handleSearchNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := getStringDefault(args, "mode", "hybrid")

	var results []searcher.ScoredCandidate
	switch mode {
	case "semantic":
		var err error
		results, err = s.engine.SemanticSearch(ctx, query, limit)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "semantic search failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	case "keyword", "hybrid":
		keywordResults, err := s.engine.KeywordSearch(ctx, query, limit*2)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "keyword search failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if mode == "keyword" {
			for i, kr := range keywordResults {
				if i >= limit {
					break
				}
				results = append(results, searcher.ScoredCandidate{
					Identifier:  kr.Path,
					DisplayName: kr.Title,
				})
			}
		} else {
			results = s.engine.HybridSearch(ctx, keywordResults, query, limit)
		}
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{"hybrid", "semantic", "keyword"},
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"mode":    mode,
		"results": candidatesJSON(results),
	})), nil
}

// handleSimilarNotes handles the similar_notes tool invocation
func (s *Server) handleSimilarNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.engine.FindSemanticallySimilar(ctx, path, limit, nil)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "similarity search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"path":    path,
		"results": candidatesJSON(results),
	})), nil
}

// handleIndexEntities handles the index_entities tool invocation.
// Without an explicit entities array, entities are derived from vault
// notes whose frontmatter declares a category or aliases.
func (s *Server) handleIndexEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	var entities []indexer.Entity
	if rawEntities, ok := args["entities"].([]interface{}); ok {
		entities = make([]indexer.Entity, 0, len(rawEntities))
		for i, raw := range rawEntities {
			obj, ok := raw.(map[string]interface{})
			if !ok {
				return nil, newMCPError(ErrorCodeInvalidParams, "invalid entity", map[string]interface{}{
					"index": i,
				})
			}
			name, _ := obj["name"].(string)
			if name == "" {
				return nil, newMCPError(ErrorCodeInvalidParams, "entity name is required", map[string]interface{}{
					"index": i,
				})
			}
			entity := indexer.Entity{
				Name:         name,
				Category:     getStringDefault(obj, "category", ""),
				DocumentPath: getStringDefault(obj, "document_path", ""),
			}
			if aliases, ok := obj["aliases"].([]interface{}); ok {
				for _, a := range aliases {
					if alias, ok := a.(string); ok {
						entity.Aliases = append(entity.Aliases, alias)
					}
				}
			}
			entities = append(entities, entity)
		}
	} else {
		var err error
		entities, err = s.engine.ExtractEntities(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "entity extraction failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	updated, err := s.engine.BuildEntityEmbeddingsIndex(ctx, entities, nil)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "entity indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Refresh the in-memory map so lookups see the new vectors
	if err := s.engine.LoadEntityEmbeddingsToMemory(ctx); err != nil {
		log.Printf("mcp: failed to refresh entity map: %v", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entities": len(entities),
		"updated":  updated,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docCount, err := s.engine.GetEmbeddingsCount(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	entityCount, err := s.engine.GetEntityEmbeddingsCount(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"embeddings_ready":   s.engine.IsEmbeddingsReady(),
		"document_count":     docCount,
		"entity_count":       entityCount,
		"has_document_index": docCount > 0,
		"has_entity_index":   entityCount > 0,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// candidatesJSON shapes candidates for a tool response
func candidatesJSON(results []searcher.ScoredCandidate) []map[string]interface{} {
	out := make([]map[string]interface{}, len(results))
	for i, r := range results {
		out[i] = map[string]interface{}{
			"path":  r.Identifier,
			"title": r.DisplayName,
			"score": r.Score,
		}
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
