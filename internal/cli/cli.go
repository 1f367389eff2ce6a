package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/config"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/docs"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/server"
)

type rootOptions struct {
	envFile string
	format  string
	verbose bool
}

// NewRootCmd creates the root command with the search, read and serve
// subcommands.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tmoddocs",
		Short: "Search and read the tModLoader API documentation",
		Long: `tmoddocs queries the tModLoader API documentation at docs.tmodloader.net.

It builds a class catalog from the Doxygen class index, searches it by name,
and renders class pages as markdown. The serve command exposes the same
operations as an MCP server on stdio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", string(FormatText), "Output format (text, json)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newSearchCmd(opts),
		newReadCmd(opts),
		newServeCmd(opts),
	)

	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search classes by name",
		Long: `Search the class catalog for names containing the query (case-insensitive).
At most 20 classes are returned, in documentation order.`,
		Example: `  tmoddocs search ModNPC
  tmoddocs search item --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseFormat(opts.format)
			if err != nil {
				return err
			}
			components, err := opts.components(cmd)
			if err != nil {
				return err
			}
			defer components.Close()

			result, err := components.Service.SearchClassesMCP(cmd.Context(), docs.SearchClassesArgs{Query: args[0]})
			if err != nil {
				return err
			}
			return WriteOutput(cmd.OutOrStdout(), result, format)
		},
	}
}

func newReadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "read <url>",
		Short:   "Print a class page as markdown",
		Example: `  tmoddocs read https://docs.tmodloader.net/docs/stable/class_mod_n_p_c.html`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseFormat(opts.format)
			if err != nil {
				return err
			}
			components, err := opts.components(cmd)
			if err != nil {
				return err
			}
			defer components.Close()

			result, err := components.Service.ReadClassDocsMCP(cmd.Context(), docs.ReadClassDocsArgs{URL: args[0]})
			if err != nil {
				return err
			}
			return WriteOutput(cmd.OutOrStdout(), result, format)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), cfg, logger, &mcp.StdioTransport{})
		},
	}
}

// load reads the configuration and builds a logger writing to w.
func (o *rootOptions) load(w io.Writer) (*config.Config, *slog.Logger, error) {
	var envFiles []string
	if o.envFile != "" {
		envFiles = append(envFiles, o.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg, NewLogger(w, cfg.LogLevel), nil
}

func (o *rootOptions) components(cmd *cobra.Command) (*server.Components, error) {
	cfg, logger, err := o.load(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return server.NewComponents(cfg, logger), nil
}

// NewLogger returns a slog logger backed by a charmbracelet/log handler.
// The slog and charmbracelet level values line up, so the level converts
// directly.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Level:           log.Level(level),
		ReportTimestamp: true,
		Prefix:          "tmoddocs",
	})
	return slog.New(handler)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
