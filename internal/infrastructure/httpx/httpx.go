package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxBody = 1 << 20

// ResponseError carries the status and body of a response that could not be
// used: either a non-2xx status (Err is nil) or an undecodable 2xx body.
type ResponseError struct {
	Code int
	Body string
	Err  error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status %d: decode response: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (e *ResponseError) Unwrap() error { return e.Err }

type Client struct {
	HTTP *http.Client
}

// DoJSON sends req once and decodes a 2xx JSON body into out. Retrying is the
// caller's decision.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ResponseError{Code: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ResponseError{Code: resp.StatusCode, Body: string(body), Err: err}
	}
	return nil
}
