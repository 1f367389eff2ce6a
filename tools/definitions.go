package tools

// AllTools contains all tool specifications for the tModLoader docs MCP server.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	{
		Name:        "search_tmodloader_classes",
		Method:      "SearchClasses",
		Title:       "Search tModLoader Classes",
		Category:    "search",
		ErrorPrefix: "Error searching classes",
		Description: `Search for tModLoader classes and interfaces from the official documentation. Returns class names, full paths, descriptions, and docs URLs.

USE WHEN: User asks "which class handles X", "where is ModNPC", "find the Item class", or needs a docs URL for a tModLoader type.

NOT FOR: Reading a class's members (use read_class_docs with a URL from the results).

PARAMETERS:
- query: Case-insensitive text matched against the class name and its full dotted path (required; empty matches everything)

RETURNS: Up to 20 classes in documentation order, each with name, full name, description and URL.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:        "read_class_docs",
		Method:      "ReadClassDocs",
		Title:       "Read Class Docs",
		Category:    "read",
		ErrorPrefix: "Error fetching docs",
		Description: `Fetch the detailed documentation (markdown) for a specific tModLoader class URL.

USE WHEN: User wants the methods, fields, hooks or remarks of a class found with search_tmodloader_classes.

NOT FOR: Finding a class by name (use search_tmodloader_classes first).

PARAMETERS:
- url: The full URL of the class documentation page (required)

RETURNS: The page's main content converted to markdown.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
