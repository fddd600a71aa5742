// Package cms is the adapter for the headless-CMS record store. The CMS
// owns the data model; this client only reads records by field equality
// and applies partial updates, translating transport failures into the
// domain error taxonomy.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
)

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  observability.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, logger observability.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// listEnvelope is the CMS list response: {"data": [{"id": 1, "attributes": {...}}]}.
type listEnvelope struct {
	Data []entry `json:"data"`
}

type entry struct {
	ID         int             `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

// find runs a filtered list query against a collection and returns the
// raw entries. An empty result is returned as-is; callers decide whether
// that is ErrNotFound or the signal to probe the next collection.
func (c *Client) find(ctx context.Context, collection, field, value string, populate string) ([]entry, error) {
	q := url.Values{}
	q.Set(fmt.Sprintf("filters[%s][$eq]", field), value)
	if populate != "" {
		q.Set("populate", populate)
	}

	var env listEnvelope
	op := "find_" + collection
	if err := c.do(ctx, op, http.MethodGet, "/api/"+collection+"?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	if len(env.Data) > 1 {
		c.logger.WithField("collection", collection).
			WithField(field, value).
			WithField("matches", len(env.Data)).
			Warn("multiple records match, using first")
	}
	return env.Data, nil
}

// update applies a partial update to one record. attrs must carry every
// attribute the CMS insists on seeing again (the type-discriminator
// quirk); the caller is responsible for that.
func (c *Client) update(ctx context.Context, collection string, id int, attrs map[string]interface{}) error {
	body := map[string]interface{}{"data": attrs}
	path := fmt.Sprintf("/api/%s/%d", collection, id)
	return c.do(ctx, "update_"+collection, http.MethodPut, path, body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	timer := time.Now()
	defer func() {
		observability.CMSRequestDuration.WithLabelValues(op).Observe(time.Since(timer).Seconds())
	}()

	attempt := func() error {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return backoff.Permanent(err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return errors.Wrapf(domain.ErrBackendUnavailable, "%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out != nil {
				payload, err := io.ReadAll(resp.Body)
				if err != nil {
					return errors.Wrapf(domain.ErrBackendUnavailable, "read %s response: %v", path, err)
				}
				if err := json.Unmarshal(payload, out); err != nil {
					return backoff.Permanent(errors.Wrapf(domain.ErrBackendUnavailable, "decode %s response", path))
				}
			}
			return nil
		}

		// Error bodies are only kept as a capped diagnostic.
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(domain.ErrNotFound)
		case resp.StatusCode >= 500:
			return errors.Wrapf(domain.ErrBackendUnavailable, "%s %s: status %d: %s", method, path, resp.StatusCode, diag)
		default:
			if method == http.MethodGet {
				return backoff.Permanent(errors.Wrapf(domain.ErrBackendUnavailable, "%s %s: status %d: %s", method, path, resp.StatusCode, diag))
			}
			// The CMS diagnostic payload is kept on the error for
			// manual reconciliation of rejected updates.
			return backoff.Permanent(errors.Wrapf(domain.ErrWriteFailed, "%s %s: status %d: %s", method, path, resp.StatusCode, diag))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(attempt, policy)
}
