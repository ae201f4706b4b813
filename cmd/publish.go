package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ragbot/src/core/publish"
	"ragbot/src/fsutil"
	"ragbot/src/log"
)

var (
	publishPaths     []string
	publishLocalOnly bool
	publishChunkSize int
	publishOverlap   int
)

var publishCmd = &cobra.Command{
	Use:   "publish-index",
	Short: "Build the index pair from stored documents and upload it",
	Long: `publish-index downloads the source documents from the bucket (and any
--path files), splits them into chunks, embeds every chunk and uploads the
resulting {index}.faiss and {index}.pkl artifacts.`,
	RunE: RunPublish,
}

func init() {
	publishCmd.Flags().StringSliceVar(&publishPaths, "path", nil, "local .txt/.csv/.pdf files to include")
	publishCmd.Flags().BoolVar(&publishLocalOnly, "local-only", false, "index only the --path files, skip bucket documents")
	publishCmd.Flags().IntVar(&publishChunkSize, "chunk-size", publish.DefaultChunkSize, "maximum chunk length in characters")
	publishCmd.Flags().IntVar(&publishOverlap, "chunk-overlap", publish.DefaultChunkOverlap, "overlap between consecutive chunks")

	rootCmd.AddCommand(publishCmd)
}

func RunPublish(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	fs := fsutil.NewLocalFileStore()

	store, err := newObjectClient(ctx, fs)
	if err != nil {
		return fmt.Errorf("failed to create object store client: %w", err)
	}
	p, err := newProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to create model provider: %w", err)
	}

	publisher := publish.NewPublisher(store, p, fs,
		viper.GetString("scratch.dir"),
		viper.GetString("index.name"),
		publish.WithChunking(publishChunkSize, publishOverlap),
	)

	var keys []string
	if !publishLocalOnly {
		keys, err = publisher.SourceKeys(ctx)
		if err != nil {
			return err
		}
	}
	log.Info("publishing index", "documents", len(keys)+len(publishPaths))

	bar := progressbar.Default(-1, "embedding chunks")
	summary, err := publisher.Publish(ctx, keys, publishPaths, bar)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "published %s: %d documents, %d chunks\n",
		summary.IndexName, summary.Documents, summary.Chunks)
	return nil
}
