package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCrawlCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl and stores the collected records",
		Long: `Reads the total page count from the listing page, scrapes up to
--limit pages, and bulk inserts the records. Pages that fail are logged and
skipped; the command fails only when the run cannot start or is interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer appInstance.Close()
			summary, err := appInstance.Crawl(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("run crawler: %w", err)
			}
			appInstance.Logger().Info("crawl command finished",
				zap.String("run_id", summary.RunID),
				zap.Int("records", summary.Records),
				zap.Bool("stored", summary.Stored),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of pages to scrape (default from crawler.page_limit)")
	return cmd
}
