package source

import (
	"bytes"
	"context"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/httputil"
)

// HTTP fetches a JSON array from an endpoint. Transient failures are retried
// by the client before a load error is reported.
type HTTP struct {
	URL    string
	Client *httputil.Client
}

// NewHTTP returns an HTTP source. A nil client uses the default retry policy.
func NewHTTP(url string, client *httputil.Client) *HTTP {
	if client == nil {
		client = httputil.NewClient(httputil.DefaultTimeout)
	}
	return &HTTP{URL: url, Client: client}
}

// Load fetches and decodes the collection.
func (h *HTTP) Load(ctx context.Context) (ast.Collection, error) {
	body, err := h.Client.Get(ctx, h.URL)
	if err != nil {
		return result(nil, err)
	}
	return result(ast.ReadCollection(bytes.NewReader(body)))
}

func (h *HTTP) String() string { return h.URL }
