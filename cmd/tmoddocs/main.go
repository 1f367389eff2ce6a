package main

import "github.com/olgasafonova/tmodloader-docs-mcp-server/internal/cli"

func main() {
	cli.Execute()
}
