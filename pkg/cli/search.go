package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/andrew/rag-loader/pkg/retrieval"
	"github.com/andrew/rag-loader/pkg/vector"
)

type searchOptions struct {
	collection string
	limit      int
	threshold  float32
}

func newSearchCmd(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query a loaded collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collection := a.cfg.Qdrant.Collection
			if cmd.Flags().Changed("collection") {
				collection = opts.collection
			}

			embedder, err := a.deps.NewEmbedder(a.cfg)
			if err != nil {
				return err
			}

			client, err := a.deps.DialSearcher(ctx, vector.Config{URL: a.cfg.Qdrant.URL, APIKey: a.cfg.Qdrant.APIKey})
			if err != nil {
				return err
			}
			defer client.Close()

			svc := retrieval.NewVectorService(embedder, client, retrieval.Config{
				Collection:     collection,
				MaxResults:     opts.limit,
				ScoreThreshold: opts.threshold,
			})

			results, err := svc.SearchByText(ctx, strings.Join(args, " "), opts.limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
			for i, r := range results {
				source, _ := r.Metadata["source"].(string)
				fmt.Fprintf(out, "%s [%d] id=%d score=%.4f %s\n", boldCyan("🔍"), i+1, r.ID, r.Score, source)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, svc.GetRetrievalContext(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.collection, "collection", "", "Collection name")
	cmd.Flags().IntVar(&opts.limit, "limit", 5, "Maximum number of results")
	cmd.Flags().Float32Var(&opts.threshold, "threshold", 0, "Minimum similarity score")

	return cmd
}
