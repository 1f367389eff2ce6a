package docs

import (
	"fmt"
	"strings"
)

// NoResultsText is returned when a search matches nothing.
const NoResultsText = "No classes found matching your query."

// Text renders the search result the way MCP clients display it: a count
// header followed by one block per class.
func (r SearchClassesResult) Text() string {
	if len(r.Classes) == 0 {
		return NoResultsText
	}

	blocks := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		desc := c.Description
		if desc == "" {
			desc = "No description"
		}
		blocks[i] = fmt.Sprintf("\n### %s (%s)\n**Description**: %s\n**URL**: %s\n", c.Name, c.FullName, desc, c.URL)
	}

	return fmt.Sprintf("Found %d classes:\n%s", len(r.Classes), strings.Join(blocks, "\n"))
}

// Text returns the page markdown unchanged.
func (r ReadClassDocsResult) Text() string {
	return r.Markdown
}
