package httpclient

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(timeout)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// SetUserAgent sets the User-Agent sent with every request unless overridden per call.
func (r *RestyClient) SetUserAgent(ua string) *RestyClient {
	if ua != "" {
		r.client.SetHeader("User-Agent", ua)
	}
	return r
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	resp, err := r.request(ctx, headers).Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Head performs an HTTP HEAD request, following redirects.
func (r *RestyClient) Head(ctx context.Context, url string, headers map[string]string) (Response, error) {
	resp, err := r.request(ctx, headers).Head(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Stream performs a GET without buffering the body.
func (r *RestyClient) Stream(ctx context.Context, url string, headers map[string]string) (StreamResponse, error) {
	resp, err := r.request(ctx, headers).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return nil, err
	}
	return &restyStreamAdapter{resp: resp}, nil
}

func (r *RestyClient) request(ctx context.Context, headers map[string]string) *resty.Request {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	return req
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }

type restyStreamAdapter struct {
	resp *resty.Response
}

func (r *restyStreamAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyStreamAdapter) Header() http.Header { return r.resp.Header() }
func (r *restyStreamAdapter) Body() io.ReadCloser { return r.resp.RawBody() }

func (r *restyStreamAdapter) ContentLength() int64 {
	if r.resp.RawResponse == nil {
		return -1
	}
	return r.resp.RawResponse.ContentLength
}
