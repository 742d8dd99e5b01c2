package client

import (
	"bytes"
	"context"
	"countrydash/internal/domain"
	"countrydash/internal/httpclient"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"
)

const DefaultURL = "https://restcountries.com/v3.1/all"

// ErrMalformedBody is returned when the upstream body is not a JSON array of objects.
var ErrMalformedBody = errors.New("malformed response body")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Getter performs a GET and returns the body of a successful response.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// RestCountriesClient interacts with the REST Countries API.
type RestCountriesClient struct {
	getter  Getter
	BaseURL string
	// Fields limits the upstream payload to the listed top-level keys.
	Fields []string
	// Retries is how many times a failed request is repeated. 4xx responses
	// and malformed bodies are final.
	Retries   uint64
	RetryWait time.Duration
	now       func() time.Time
}

// NewRestCountriesClient creates a client for the REST Countries "all" endpoint.
func NewRestCountriesClient(getter Getter) *RestCountriesClient {
	return &RestCountriesClient{
		getter:    getter,
		BaseURL:   DefaultURL,
		RetryWait: 500 * time.Millisecond,
		now:       time.Now,
	}
}

// Endpoint is the full URL requested, including the fields filter.
// It also serves as the cache key for the fetched table.
func (c *RestCountriesClient) Endpoint() string {
	if len(c.Fields) == 0 {
		return c.BaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	q := u.Query()
	q.Set("fields", strings.Join(c.Fields, ","))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchAll downloads every country record in a single request. 5xx responses
// and transport errors are retried up to Retries times.
func (c *RestCountriesClient) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	var body []byte
	op := func() error {
		var err error
		body, err = c.getter.Get(ctx, c.Endpoint())
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryWait
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.Retries), ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch countries: %w", err)
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, err
	}

	return &domain.Snapshot{
		Records:   records,
		Version:   fingerprint(body),
		FetchedAt: c.now(),
	}, nil
}

func decodeRecords(body []byte) ([]domain.RawCountryRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedBody)
	}
	var records []domain.RawCountryRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return records, nil
}

// fingerprint identifies a payload so unchanged data keeps the same ETag.
func fingerprint(body []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(body))
}
