package apify

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
)

// ReviewsActor is the Google Maps reviews scraper.
const ReviewsActor = "compass~google-maps-reviews-scraper"

// ReviewsClient defines the Apify operations used to collect place reviews.
type ReviewsClient interface {
	StartReviewsRun(ctx context.Context, input ReviewsInput) (*model.JobHandle, error)
	GetRun(ctx context.Context, id string) (*model.JobHandle, error)
	GetReviewItems(ctx context.Context, datasetID string) ([]model.Review, error)
}

// ReviewsInput is the actor input for a reviews scrape.
type ReviewsInput struct {
	PlaceIDs   []string `json:"placeIds"`
	MaxReviews int      `json:"maxReviews"`
	Language   string   `json:"language"`
}

// NewReviewsClient creates an Apify client for the reviews actor. WithActor
// overrides the actor as it does for NewClient.
func NewReviewsClient(token string, opts ...Option) ReviewsClient {
	return newHTTPClient(token, ReviewsActor, opts)
}

func (c *httpClient) StartReviewsRun(ctx context.Context, input ReviewsInput) (*model.JobHandle, error) {
	return c.startActor(ctx, input)
}

// GetReviewItems reads a reviews dataset. Items that do not decode as a
// review are logged and skipped; a payload that is not an array of objects
// fails the call.
func (c *httpClient) GetReviewItems(ctx context.Context, datasetID string) ([]model.Review, error) {
	var items []map[string]json.RawMessage
	path := "/datasets/" + url.PathEscape(datasetID) + "/items?format=json&clean=true"
	if err := c.get(ctx, path, &items); err != nil {
		return nil, eris.Wrapf(err, "apify: get dataset %s", datasetID)
	}

	reviews := make([]model.Review, 0, len(items))
	for i, item := range items {
		r, err := decodeReview(item)
		if err != nil {
			zap.L().Warn("apify: skipping malformed review",
				zap.String("dataset_id", datasetID),
				zap.Int("item", i),
				zap.Error(err),
			)
			continue
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// decodeReview maps a dataset item onto a Review. placeId is required; the
// other interpreted fields must have the documented type or be null, and a
// rating must lie between 1 and 5. reviewText stands in for a missing text.
func decodeReview(item map[string]json.RawMessage) (model.Review, error) {
	if item == nil {
		return model.Review{}, eris.Wrap(ErrUnexpectedPayload, "item is not an object")
	}

	var r model.Review
	strs := map[string]*string{
		"placeId":         &r.PlaceID,
		"reviewId":        &r.ReviewID,
		"text":            &r.Text,
		"name":            &r.AuthorName,
		"reviewUrl":       &r.ReviewURL,
		"publishedAtDate": &r.PublishedAt,
		"responseText":    &r.ResponseText,
		"responseDate":    &r.ResponseDate,
	}
	for key, dst := range strs {
		raw, ok := item[key]
		if !ok {
			continue
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return model.Review{}, eris.Wrapf(ErrUnexpectedPayload, "field %q is not a string", key)
		}
		if v != nil {
			*dst = *v
		}
	}
	if r.PlaceID == "" {
		return model.Review{}, eris.Wrap(ErrUnexpectedPayload, "missing placeId")
	}

	if _, hasText := item["text"]; !hasText {
		if raw, ok := item["reviewText"]; ok {
			var v *string
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Review{}, eris.Wrap(ErrUnexpectedPayload, `field "reviewText" is not a string`)
			}
			if v != nil {
				r.Text = *v
			}
		}
	}

	if raw, ok := item["rating"]; ok {
		if err := json.Unmarshal(raw, &r.Rating); err != nil {
			return model.Review{}, eris.Wrap(ErrUnexpectedPayload, `field "rating" is not a number`)
		}
		if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
			return model.Review{}, eris.Wrapf(ErrUnexpectedPayload, "rating %v out of range", *r.Rating)
		}
	}
	if raw, ok := item["likesCount"]; ok {
		if err := json.Unmarshal(raw, &r.LikesCount); err != nil {
			return model.Review{}, eris.Wrap(ErrUnexpectedPayload, `field "likesCount" is not an integer`)
		}
	}
	if raw, ok := item["reviewImageUrls"]; ok {
		if err := json.Unmarshal(raw, &r.ImageURLs); err != nil {
			return model.Review{}, eris.Wrap(ErrUnexpectedPayload, `field "reviewImageUrls" is not a list of strings`)
		}
	}
	return r, nil
}
