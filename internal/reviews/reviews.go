// Package reviews collects Google Maps reviews for a set of places through
// the Apify reviews actor and groups them by place.
package reviews

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/pkg/apify"
)

// Bounds on reviews requested per place.
const (
	MinReviews = 1
	MaxReviews = 1000
)

// Request describes one reviews scrape.
type Request struct {
	PlaceIDs   []string
	MaxReviews int
	Language   string
}

// Validate checks the request. Place ids are trimmed in place.
func (r *Request) Validate() error {
	if len(r.PlaceIDs) == 0 {
		return eris.New("reviews: at least one place id is required")
	}
	for i, id := range r.PlaceIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return eris.New("reviews: place ids cannot be empty")
		}
		r.PlaceIDs[i] = id
	}
	if r.MaxReviews < MinReviews || r.MaxReviews > MaxReviews {
		return eris.Errorf("reviews: max reviews must be between %d and %d", MinReviews, MaxReviews)
	}
	if r.Language == "" {
		r.Language = "en"
	}
	return nil
}

// Result holds reviews keyed by place id. Every requested place has an
// entry, empty when the actor returned nothing for it.
type Result struct {
	ReviewsByPlace map[string][]model.Review `json:"reviews_by_place" yaml:"reviews_by_place"`
	TotalReviews   int                       `json:"total_reviews" yaml:"total_reviews"`
	TotalPlaces    int                       `json:"total_places" yaml:"total_places"`
}

// TextResult holds only the non-empty review texts keyed by place id.
type TextResult struct {
	TextsByPlace map[string][]string `json:"texts_by_place" yaml:"texts_by_place"`
	TotalReviews int                 `json:"total_reviews" yaml:"total_reviews"`
	TotalPlaces  int                 `json:"total_places" yaml:"total_places"`
}

// Fetch runs the reviews actor for req, waits for it with PollRun and
// groups the dataset by place.
func Fetch(ctx context.Context, client apify.ReviewsClient, req Request, pollOpts ...apify.PollOption) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.Int("places", len(req.PlaceIDs)))
	log.Info("reviews: starting scrape", zap.Int("max_reviews", req.MaxReviews))

	h, err := client.StartReviewsRun(ctx, apify.ReviewsInput{
		PlaceIDs:   req.PlaceIDs,
		MaxReviews: req.MaxReviews,
		Language:   req.Language,
	})
	if err != nil {
		return nil, eris.Wrap(err, "reviews: start")
	}

	datasetID, err := apify.PollRun(ctx, client, h.ID, pollOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "reviews: wait")
	}
	log.Info("reviews: run finished", zap.String("run_id", h.ID), zap.String("dataset_id", datasetID))

	items, err := client.GetReviewItems(ctx, datasetID)
	if err != nil {
		return nil, eris.Wrap(err, "reviews: fetch dataset")
	}
	return Group(req.PlaceIDs, items), nil
}

// Group buckets reviews under the requested place ids in dataset order.
// Reviews for places that were not requested are dropped.
func Group(placeIDs []string, items []model.Review) *Result {
	res := &Result{ReviewsByPlace: make(map[string][]model.Review, len(placeIDs))}
	for _, id := range placeIDs {
		res.ReviewsByPlace[id] = []model.Review{}
	}
	for _, r := range items {
		bucket, ok := res.ReviewsByPlace[r.PlaceID]
		if !ok {
			continue
		}
		res.ReviewsByPlace[r.PlaceID] = append(bucket, r)
		res.TotalReviews++
	}
	res.TotalPlaces = len(res.ReviewsByPlace)
	return res
}

// Texts reduces a result to the review texts, dropping reviews without one.
func (r *Result) Texts() *TextResult {
	out := &TextResult{TextsByPlace: make(map[string][]string, len(r.ReviewsByPlace))}
	for id, list := range r.ReviewsByPlace {
		texts := []string{}
		for _, rv := range list {
			if rv.Text != "" {
				texts = append(texts, rv.Text)
			}
		}
		out.TextsByPlace[id] = texts
		out.TotalReviews += len(texts)
	}
	out.TotalPlaces = len(out.TextsByPlace)
	return out
}
