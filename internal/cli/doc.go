// Package cli implements the tmoddocs command-line interface.
//
// It shares configuration and the documentation service with the MCP
// server, so a search from the terminal returns the same classes a client
// would see through search_tmodloader_classes.
package cli
