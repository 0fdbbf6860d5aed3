package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/reviews"
	"github.com/sells-group/lead-cli/pkg/apify"
)

var (
	reviewsPlaceIDs   []string
	reviewsMaxReviews int
	reviewsLanguage   string
	reviewsTextsOnly  bool
	reviewsOut        string
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Scrape Google Maps reviews for places and save them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if reviewsMaxReviews > 0 {
			cfg.Reviews.MaxReviews = reviewsMaxReviews
		}
		if reviewsLanguage != "" {
			cfg.Reviews.Language = reviewsLanguage
		}
		if reviewsOut != "" {
			cfg.Reviews.Output = reviewsOut
		}
		if err := cfg.Validate(config.ModeReviews); err != nil {
			return err
		}

		var opts []apify.Option
		if cfg.Apify.BaseURL != "" {
			opts = append(opts, apify.WithBaseURL(cfg.Apify.BaseURL))
		}
		if cfg.Reviews.Actor != "" {
			opts = append(opts, apify.WithActor(cfg.Reviews.Actor))
		}
		client := apify.NewReviewsClient(cfg.Apify.Token, opts...)

		res, err := reviews.Fetch(ctx, client, reviews.Request{
			PlaceIDs:   reviewsPlaceIDs,
			MaxReviews: cfg.Reviews.MaxReviews,
			Language:   cfg.Reviews.Language,
		},
			apify.WithPollInterval(cfg.Apify.PollInterval()),
			apify.WithPollCap(cfg.Apify.PollMaxInterval()),
			apify.WithPollTimeout(cfg.Apify.PollMaxWait()),
			apify.WithStatusAttempts(cfg.Apify.StatusAttempts),
		)
		if err != nil {
			return err
		}

		var out any = res
		total := res.TotalReviews
		counts := make(map[string]int, len(res.ReviewsByPlace))
		for id, list := range res.ReviewsByPlace {
			counts[id] = len(list)
		}
		if reviewsTextsOnly {
			texts := res.Texts()
			out = texts
			total = texts.TotalReviews
			for id, list := range texts.TextsByPlace {
				counts[id] = len(list)
			}
		}

		if err := saveJSON(cfg.Reviews.Output, out); err != nil {
			return err
		}
		zap.L().Info("reviews saved", zap.String("path", cfg.Reviews.Output))

		formatReviewsSummary(os.Stdout, counts, total)
		return nil
	},
}

// saveJSON writes v to path as indented JSON.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal reviews")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// formatReviewsSummary prints the overall total and one line per place,
// ordered by place id.
func formatReviewsSummary(w io.Writer, counts map[string]int, total int) {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(w, "Total: %d reviews from %d places\n", total, len(ids))
	for _, id := range ids {
		fmt.Fprintf(w, "%s: %d reviews\n", id, counts[id])
	}
}

func init() {
	reviewsCmd.Flags().StringSliceVar(&reviewsPlaceIDs, "place-id", nil, "Google Maps place id (repeatable or comma-separated)")
	reviewsCmd.Flags().IntVar(&reviewsMaxReviews, "max-reviews", 0, "max reviews per place, 1-1000 (default from config)")
	reviewsCmd.Flags().StringVar(&reviewsLanguage, "language", "", "review language code (default from config)")
	reviewsCmd.Flags().BoolVar(&reviewsTextsOnly, "texts-only", false, "save only the review texts")
	reviewsCmd.Flags().StringVar(&reviewsOut, "out", "", "output JSON file (default from config)")
	_ = reviewsCmd.MarkFlagRequired("place-id")
	rootCmd.AddCommand(reviewsCmd)
}
