package cli

import (
	"github.com/spf13/cobra"

	"github.com/andrew/rag-loader/pkg/loader"
	"github.com/andrew/rag-loader/pkg/tablestore"
)

type loadOptions struct {
	table          string
	url            string
	apiKey         string
	collection     string
	vectorSize     int
	batchSize      int
	deletePrev     bool
	create         bool
	firstBatchOnly bool
}

func newLoadCmd(a *app) *cobra.Command {
	opts := &loadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load an embedding table into a Qdrant collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := a.cfg.Qdrant
			if cmd.Flags().Changed("url") {
				q.URL = opts.url
			}
			if cmd.Flags().Changed("api-key") {
				q.APIKey = opts.apiKey
			}
			if cmd.Flags().Changed("collection") {
				q.Collection = opts.collection
			}
			if cmd.Flags().Changed("vector-size") {
				q.VectorSize = opts.vectorSize
			}
			if cmd.Flags().Changed("batch-size") {
				q.BatchSize = opts.batchSize
			}

			store, err := tablestore.Open(opts.table)
			if err != nil {
				return err
			}
			table, err := store.Load(cmd.Context())
			store.Close()
			if err != nil {
				return err
			}
			cmd.Printf("📚 Loaded %d records from %s\n", len(table), opts.table)

			result, err := loader.CreateNewCollection(cmd.Context(), a.deps.Dial, loader.Request{
				URL:               q.URL,
				Credential:        q.APIKey,
				Collection:        q.Collection,
				VectorSize:        q.VectorSize,
				BatchSize:         q.BatchSize,
				DeletePrev:        opts.deletePrev,
				CreateFromScratch: opts.create,
				FirstBatchOnly:    opts.firstBatchOnly,
			}, table, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			cmd.Printf("📤 Upserted %d points in %d batches\n", result.Upserted, result.Batches)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.table, "table", "embeddings.db", "Table file written by embed")
	cmd.Flags().StringVar(&opts.url, "url", "", "Qdrant URL")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Qdrant API key or JWT")
	cmd.Flags().StringVar(&opts.collection, "collection", "", "Collection name")
	cmd.Flags().IntVar(&opts.vectorSize, "vector-size", 0, "Vector dimensionality")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Points per upsert request")
	cmd.Flags().BoolVar(&opts.deletePrev, "delete-prev", false, "Delete the collection first")
	cmd.Flags().BoolVar(&opts.create, "create", false, "Create the collection with cosine distance")
	cmd.Flags().BoolVar(&opts.firstBatchOnly, "first-batch-only", false, "Upsert only the first batch")

	return cmd
}
