package httpclient

import (
	"context"
	"io"
	"net/http"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// StreamResponse is a response whose body has not been read yet. Callers must close Body.
type StreamResponse interface {
	StatusCode() int
	Header() http.Header
	ContentLength() int64
	Body() io.ReadCloser
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Head(ctx context.Context, url string, headers map[string]string) (Response, error)
	Stream(ctx context.Context, url string, headers map[string]string) (StreamResponse, error)
}
