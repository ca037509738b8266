package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// NewClient returns a Client posting requests to endpoint
// retries is the amount of times a failed delivery is retried, timeout
// bounds one question including its retries.
func NewClient(endpoint string, retries int, timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil

	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		http:     rc,
	}
}

// Client is the asking side of the channel
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *retryablehttp.Client
}

// Check asks whether candidateURL exists
func (c *Client) Check(ctx context.Context, candidateURL string) (bool, error) {
	resp, err := c.Send(ctx, Request{Action: ActionCheckExistence, CandidateURL: candidateURL})
	if err != nil {
		return false, err
	}

	return resp.Exists, nil
}

// Send delivers req and waits for its response
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to marshal channel request")
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to build channel request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, errors.Wrap(err, "channel request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return Response{}, errors.Errorf("channel answered with status %d", httpResp.StatusCode)
	}
	var resp Response
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to decode channel response")
	}

	return resp, nil
}
