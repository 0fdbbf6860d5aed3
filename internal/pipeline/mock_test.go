package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-cli/internal/linkcheck"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/sheet"
	"github.com/sells-group/lead-cli/pkg/apify"
)

// --- Apify Mock ---

type mockApifyClient struct {
	mock.Mock
}

func (m *mockApifyClient) StartRun(ctx context.Context, input apify.RunInput) (*model.JobHandle, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobHandle), args.Error(1)
}

func (m *mockApifyClient) GetRun(ctx context.Context, id string) (*model.JobHandle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobHandle), args.Error(1)
}

func (m *mockApifyClient) GetDatasetItems(ctx context.Context, datasetID string) ([]model.ScrapeRecord, error) {
	args := m.Called(ctx, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScrapeRecord), args.Error(1)
}

// --- Sheet ---

type memSheet struct {
	mu       sync.Mutex
	values   [][]string
	appends  int
	replaces int
	readErr  error
}

func (m *memSheet) ReadAll(context.Context) (*sheet.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	cp := make([][]string, len(m.values))
	for i, r := range m.values {
		cp[i] = append([]string(nil), r...)
	}
	return sheet.FromValues(cp), nil
}

func (m *memSheet) Append(_ context.Context, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	m.values = append(m.values, rows...)
	return nil
}

func (m *memSheet) Replace(_ context.Context, values [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	m.values = values
	return nil
}

// --- Page fetcher ---

type stubFetcher map[string]string

func (f stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	if body, ok := f[url]; ok {
		return body, nil
	}
	return "", errors.New("dial tcp: no such host")
}

// --- Link checker ---

type stubLinks map[string]model.CheckResult

func (s stubLinks) Check(_ context.Context, _ linkcheck.Platform, url string) model.CheckResult {
	if r, ok := s[url]; ok {
		return r
	}
	return model.Valid()
}

// --- Email validator ---

type stubEmails struct {
	badDomains map[string]bool
}

func (s stubEmails) Validate(_ context.Context, email string, checkDomain bool) bool {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			if checkDomain && s.badDomains[email[i+1:]] {
				return false
			}
			return i > 0 && i < len(email)-1
		}
	}
	return false
}
