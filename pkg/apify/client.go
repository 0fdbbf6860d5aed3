// Package apify is a minimal client for running the Google Maps places and
// reviews actors on the Apify platform and reading back their datasets.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"

	// DefaultActor is the Google Maps places crawler.
	DefaultActor = "compass~crawler-google-places"
)

var (
	// ErrUnexpectedPayload means a response did not have the documented shape.
	ErrUnexpectedPayload = errors.New("apify: unexpected payload")

	// ErrMissingDataset means a run succeeded without reporting its dataset.
	ErrMissingDataset = errors.New("apify: run succeeded without a dataset id")

	// ErrJobFailed means a run reached a terminal status other than SUCCEEDED.
	ErrJobFailed = errors.New("apify: run did not succeed")
)

// Client defines the Apify operations used by the workflow.
type Client interface {
	StartRun(ctx context.Context, input RunInput) (*model.JobHandle, error)
	GetRun(ctx context.Context, id string) (*model.JobHandle, error)
	GetDatasetItems(ctx context.Context, datasetID string) ([]model.ScrapeRecord, error)
}

// RunInput is the actor input for a places search.
type RunInput struct {
	SearchStringsArray            []string `json:"searchStringsArray"`
	LocationQuery                 string   `json:"locationQuery"`
	MaxCrawledPlacesPerSearch     int      `json:"maxCrawledPlacesPerSearch"`
	Language                      string   `json:"language"`
	MaximumLeadsEnrichmentRecords int      `json:"maximumLeadsEnrichmentRecords"`
	MaxImages                     int      `json:"maxImages"`
}

// NewRunInput builds the input for a single search term in one location.
func NewRunInput(search, location string, maxResults int) RunInput {
	return RunInput{
		SearchStringsArray:        []string{search},
		LocationQuery:             location,
		MaxCrawledPlacesPerSearch: maxResults,
		Language:                  "en",
	}
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithActor overrides the actor that StartRun launches.
func WithActor(actor string) Option {
	return func(c *httpClient) {
		c.actor = actor
	}
}

type httpClient struct {
	token   string
	baseURL string
	actor   string
	http    *http.Client
}

// NewClient creates a new Apify client for the places actor.
func NewClient(token string, opts ...Option) Client {
	return newHTTPClient(token, DefaultActor, opts)
}

func newHTTPClient(token, actor string, opts []Option) *httpClient {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		actor:   actor,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type runEnvelope struct {
	Data *model.JobHandle `json:"data"`
}

func (c *httpClient) StartRun(ctx context.Context, input RunInput) (*model.JobHandle, error) {
	return c.startActor(ctx, input)
}

func (c *httpClient) startActor(ctx context.Context, input any) (*model.JobHandle, error) {
	var env runEnvelope
	path := "/acts/" + url.PathEscape(c.actor) + "/runs"
	if err := c.post(ctx, path, input, &env); err != nil {
		return nil, eris.Wrapf(err, "apify: start %s", c.actor)
	}
	h, err := checkRun(env)
	if err != nil {
		return nil, eris.Wrapf(err, "apify: start %s", c.actor)
	}
	return h, nil
}

func (c *httpClient) GetRun(ctx context.Context, id string) (*model.JobHandle, error) {
	var env runEnvelope
	if err := c.get(ctx, "/actor-runs/"+url.PathEscape(id), &env); err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", id)
	}
	h, err := checkRun(env)
	if err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", id)
	}
	return h, nil
}

func checkRun(env runEnvelope) (*model.JobHandle, error) {
	switch {
	case env.Data == nil:
		return nil, eris.Wrap(ErrUnexpectedPayload, "missing data envelope")
	case env.Data.ID == "":
		return nil, eris.Wrap(ErrUnexpectedPayload, "missing run id")
	case !env.Data.Status.Known():
		return nil, eris.Wrapf(ErrUnexpectedPayload, "unknown run status %q", env.Data.Status)
	}
	return env.Data, nil
}

func (c *httpClient) GetDatasetItems(ctx context.Context, datasetID string) ([]model.ScrapeRecord, error) {
	var items []map[string]json.RawMessage
	path := "/datasets/" + url.PathEscape(datasetID) + "/items?format=json&clean=true"
	if err := c.get(ctx, path, &items); err != nil {
		return nil, eris.Wrapf(err, "apify: get dataset %s", datasetID)
	}

	records := make([]model.ScrapeRecord, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, eris.Wrapf(err, "apify: dataset %s item %d", datasetID, i)
		}
		records = append(records, rec)
	}
	return records, nil
}

// decodeRecord maps a dataset item onto a ScrapeRecord. The interpreted
// fields must be strings or null when present.
func decodeRecord(item map[string]json.RawMessage) (model.ScrapeRecord, error) {
	if item == nil {
		return model.ScrapeRecord{}, eris.Wrap(ErrUnexpectedPayload, "item is not an object")
	}

	var rec model.ScrapeRecord
	fields := map[string]*string{
		"title":   &rec.Title,
		"phone":   &rec.Phone,
		"address": &rec.Address,
		"website": &rec.Website,
	}
	for key, raw := range item {
		dst, ok := fields[key]
		if !ok {
			if rec.Extra == nil {
				rec.Extra = make(map[string]json.RawMessage)
			}
			rec.Extra[key] = raw
			continue
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return model.ScrapeRecord{}, eris.Wrapf(ErrUnexpectedPayload, "field %q is not a string", key)
		}
		if v != nil {
			*dst = *v
		}
	}
	return rec, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(ErrUnexpectedPayload, "decode response: %v", err)
	}
	return nil
}
