package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func httpClientRT(rt http.RoundTripper) *http.Client {
	return &http.Client{Transport: rt, Timeout: 2 * time.Second}
}

func respond(code int, body string) rtFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header), Request: r}, nil
	}
}

func TestDoJSON_OK(t *testing.T) {
	type resp struct {
		OK bool `json:"ok"`
	}
	var out resp
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	c := &Client{HTTP: httpClientRT(respond(200, `{"ok": true}`))}
	require.NoError(t, c.DoJSON(context.Background(), req, &out))
	require.True(t, out.OK)
}

func TestDoJSON_NoRetryOn500(t *testing.T) {
	var calls int
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return respond(500, "err")(r)
	}))}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	err := c.DoJSON(context.Background(), req, &struct{}{})

	var re *ResponseError
	require.ErrorAs(t, err, &re)
	require.Equal(t, 500, re.Code)
	require.Equal(t, "err", re.Body)
	require.Equal(t, 1, calls)
}

type tempTimeoutErr struct{}

func (tempTimeoutErr) Error() string   { return "timeout" }
func (tempTimeoutErr) Timeout() bool   { return true }
func (tempTimeoutErr) Temporary() bool { return true }

func TestDoJSON_TransportError(t *testing.T) {
	c := &Client{HTTP: httpClientRT(rtFunc(func(*http.Request) (*http.Response, error) {
		var ne net.Error = tempTimeoutErr{}
		return nil, ne
	}))}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	err := c.DoJSON(context.Background(), req, &struct{}{})
	require.Error(t, err)

	var ne net.Error
	require.True(t, errors.As(err, &ne))
	require.True(t, ne.Timeout())
	var re *ResponseError
	require.False(t, errors.As(err, &re))
}

func TestDoJSON_DecodeError(t *testing.T) {
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewBufferString("{x")), Header: make(http.Header), Request: r}, nil
	}))}
	var out map[string]any
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	err := c.DoJSON(context.Background(), req, &out)

	var re *ResponseError
	require.ErrorAs(t, err, &re)
	require.Equal(t, 200, re.Code)
	require.Equal(t, "{x", re.Body)
	require.Error(t, re.Err)
}
