package docs

import "github.com/olgasafonova/tmodloader-docs-mcp-server/internal/catalog"

// SearchClassesArgs contains parameters for a class search
type SearchClassesArgs struct {
	Query string `json:"query" jsonschema:"The search query (e.g. 'NPC', 'Item', 'ModPlayer')"`
}

// SearchClassesResult is the result of a class search
type SearchClassesResult struct {
	Query   string                `json:"query"`
	Count   int                   `json:"count"`
	Classes []catalog.ClassRecord `json:"classes"`
}

// ReadClassDocsArgs contains parameters for reading a class page
type ReadClassDocsArgs struct {
	URL string `json:"url" jsonschema:"The full URL of the class documentation page (returned by search_tmodloader_classes)"`
}

// ReadClassDocsResult is the markdown content of a class page
type ReadClassDocsResult struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}
