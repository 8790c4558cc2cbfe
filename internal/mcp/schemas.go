package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexVaultTool returns the tool definition for index_vault
func indexVaultTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_vault",
		Description: "Build or refresh the embedding index over the configured note vault",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchNotesTool returns the tool definition for search_notes
func searchNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_notes",
		Description: "Search vault notes with keyword, semantic, or hybrid ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Ranking mode",
					"enum":        []string{"hybrid", "semantic", "keyword"},
					"default":     "hybrid",
				},
			},
			Required: []string{"query"},
		},
	}
}

// similarNotesTool returns the tool definition for similar_notes
func similarNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "similar_notes",
		Description: "Find notes semantically similar to an indexed note",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Vault-relative path of the source note",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"path"},
		},
	}
}

// indexEntitiesTool returns the tool definition for index_entities
func indexEntitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_entities",
		Description: "Build embeddings for named entities. Omit the entities array to derive them from note frontmatter (category or aliases)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entities": map[string]interface{}{
					"type":        "array",
					"description": "Entities to index",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name": map[string]interface{}{
								"type":        "string",
								"description": "Entity name (identifier)",
							},
							"aliases": map[string]interface{}{
								"type":        "array",
								"description": "Alternative names",
								"items":       map[string]interface{}{"type": "string"},
							},
							"category": map[string]interface{}{
								"type":        "string",
								"description": "Entity category (person, project, ...)",
							},
							"document_path": map[string]interface{}{
								"type":        "string",
								"description": "Vault-relative path of the entity's backing note",
							},
						},
						"required": []string{"name"},
					},
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index health and embedding counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
