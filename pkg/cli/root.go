// Package cli wires the rag-loader packages into cobra commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/andrew/rag-loader/pkg/config"
	"github.com/andrew/rag-loader/pkg/embedding"
	"github.com/andrew/rag-loader/pkg/llm"
	"github.com/andrew/rag-loader/pkg/logging"
	"github.com/andrew/rag-loader/pkg/vector"
)

var version = "dev"

// SearchClient is a vector searcher holding a connection
type SearchClient interface {
	vector.Searcher
	Close() error
}

// Deps are the external collaborators the commands talk to
type Deps struct {
	Dial         vector.Dialer
	DialSearcher func(ctx context.Context, cfg vector.Config) (SearchClient, error)
	NewEmbedder  func(cfg config.Config) (embedding.Embedder, error)
}

// DefaultDeps connects to real Qdrant and Ollama servers
func DefaultDeps() Deps {
	return Deps{
		Dial: vector.DialQdrant,
		DialSearcher: func(ctx context.Context, cfg vector.Config) (SearchClient, error) {
			store, err := vector.DialQdrantStore(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
		NewEmbedder: func(cfg config.Config) (embedding.Embedder, error) {
			client, err := llm.NewOllamaClient(cfg.Ollama.Model, cfg.Ollama.URL)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// app carries the resolved configuration between the root and subcommands
type app struct {
	deps       Deps
	cfg        config.Config
	configPath string
	debug      bool
}

// NewRootCmd builds the rag-loader command tree
func NewRootCmd(deps Deps) *cobra.Command {
	a := &app{deps: deps}

	rootCmd := &cobra.Command{
		Use:   "rag-loader",
		Short: "Embed text chunks and load them into a Qdrant collection",
		Long: `rag-loader turns text chunks into embeddings with an Ollama model,
loads them into a Qdrant collection and mints Qdrant JWT access tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = a.debug
			}
			a.cfg = cfg
			logging.SetDebug(cfg.Debug)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output")

	rootCmd.AddCommand(
		newEmbedCmd(a),
		newTokenCmd(a),
		newLoadCmd(a),
		newSearchCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree against real services
func Execute(ctx context.Context) error {
	return NewRootCmd(DefaultDeps()).ExecuteContext(ctx)
}
