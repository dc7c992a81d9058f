package gepgclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Headers the gateway requires on every submission.
const (
	HeaderCom  = "Gepg-Com"
	HeaderCode = "Gepg-Code"

	ContentType = "application/xml"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	// Submission endpoint, e.g. https://uat1.gepg.go.tz/api/bill/sigqrequest
	URL string
	// Routing identifier sent as Gepg-Com
	Com string
	// Service provider code sent as Gepg-Code
	Code string
	// Per attempt timeout. DefaultTimeout when zero
	Timeout time.Duration
	// Transport retries on network failure. Zero means a single attempt
	Retries int
	// Base delay between attempts, grows linearly
	Backoff time.Duration
	// Optional preconfigured client, e.g. with a digest auth transport
	Client *http.Client
}

// Client posts signed envelopes to the gateway submission endpoint.
type Client struct {
	config Config
	client *http.Client
}

func New(config Config) (c *Client) {
	c = &Client{config: config, client: config.Client}
	if c.client == nil {
		c.client = &http.Client{}
	}
	if c.config.Timeout == 0 {
		c.config.Timeout = DefaultTimeout
	}
	return c
}

// Submit posts a signed envelope and returns the raw response body.
// Transport failures are retried with a linear backoff; the last error is
// returned once the attempts are exhausted.
func (c *Client) Submit(ctx context.Context, envelope []byte) (response []byte, err error) {
	for attempt := 0; attempt <= c.config.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.config.Backoff):
			}
		}

		response, err = c.post(ctx, envelope)
		if err == nil {
			return response, nil
		}
	}
	return nil, err
}

func (c *Client) post(ctx context.Context, envelope []byte) (response []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set(HeaderCom, c.config.Com)
	req.Header.Set(HeaderCode, c.config.Code)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	response, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return response, nil
}
