package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/andrew/rag-loader/pkg/docs"
	"github.com/andrew/rag-loader/pkg/embedding"
	"github.com/andrew/rag-loader/pkg/models"
	"github.com/andrew/rag-loader/pkg/tablestore"
)

type embedOptions struct {
	input      string
	dir        string
	out        string
	model      string
	ollamaURL  string
	dimension  int
	chunkSize  int
	overlap    int
	noProgress bool
}

func newEmbedCmd(a *app) *cobra.Command {
	opts := &embedOptions{}

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed documents and save the embedding table",
		Long: `Reads documents from a JSON Lines file (--input) or chunks the .md/.txt
files of a directory (--dir), embeds every chunk and writes the table to a
SQLite file for the load command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("model") {
				a.cfg.Ollama.Model = opts.model
			}
			if cmd.Flags().Changed("ollama-url") {
				a.cfg.Ollama.URL = opts.ollamaURL
			}
			if cmd.Flags().Changed("chunk-size") {
				a.cfg.Chunk.Size = opts.chunkSize
			}
			if cmd.Flags().Changed("chunk-overlap") {
				a.cfg.Chunk.Overlap = opts.overlap
			}
			if !cmd.Flags().Changed("dimension") {
				opts.dimension = a.cfg.Qdrant.VectorSize
			}
			return runEmbed(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "JSON Lines file of {page_content, metadata} documents")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory of .md/.txt files to chunk")
	cmd.Flags().StringVar(&opts.out, "out", "embeddings.db", "Output table file")
	cmd.Flags().StringVar(&opts.model, "model", "", "Ollama embedding model")
	cmd.Flags().StringVar(&opts.ollamaURL, "ollama-url", "", "Ollama server URL")
	cmd.Flags().IntVar(&opts.dimension, "dimension", 0, "Reject vectors of any other length (default: configured vector size, 0 disables the check)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "Chunk size for --dir")
	cmd.Flags().IntVar(&opts.overlap, "chunk-overlap", 0, "Chunk overlap for --dir")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Hide the progress bar")
	cmd.MarkFlagsMutuallyExclusive("input", "dir")
	cmd.MarkFlagsOneRequired("input", "dir")

	return cmd
}

func runEmbed(cmd *cobra.Command, a *app, opts *embedOptions) error {
	ctx := cmd.Context()

	documents, err := readDocuments(a, opts)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return errors.New("no documents found")
	}
	cmd.Printf("📚 Processing %d documents\n", len(documents))

	embedder, err := a.deps.NewEmbedder(a.cfg)
	if err != nil {
		return err
	}
	if pinger, ok := embedder.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			return err
		}
	}

	buildOpts := []embedding.Option{embedding.WithDimension(opts.dimension)}
	if !opts.noProgress {
		buildOpts = append(buildOpts, embedding.WithProgress(embedding.NewProgressBar(cmd.ErrOrStderr())))
	}

	table, err := embedding.BuildTable(ctx, documents, embedder, buildOpts...)
	if err != nil {
		return err
	}

	store, err := tablestore.Open(opts.out)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, table); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Embedded %d documents into %s\n", len(table), opts.out)
	return nil
}

func readDocuments(a *app, opts *embedOptions) ([]models.Document, error) {
	if opts.dir != "" {
		return docs.LoadDir(opts.dir, a.cfg.Chunk.Size, a.cfg.Chunk.Overlap)
	}
	documents, err := docs.ReadJSONLFile(opts.input)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.input, err)
	}
	return documents, nil
}
