// Package resource opens scenario files and mask images from local paths or
// http(s) URLs.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedScheme = errors.New("resource: unsupported scheme")
	ErrFetchFailed       = errors.New("resource: fetch failed")
)

// An open input stream. The caller must Close it.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the location this resource was opened from.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource. Locations without a scheme are treated as local paths;
// backslashes are normalized so windows paths parse cleanly.
func Open(ctx context.Context, location string) (*Resource, error) {
	u, err := url.Parse(strings.Replace(location, `\`, `/`, -1))
	if err != nil {
		return nil, err
	}

	// A single-letter scheme is a windows drive letter.
	if len(u.Scheme) == 1 {
		u = &url.URL{Path: location}
	}

	var reader io.ReadCloser
	switch u.Scheme {
	case "", "file":
		reader, err = os.Open(filepath.Clean(u.Path))
		if err != nil {
			return nil, err
		}
		u.Scheme = ""
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: '%s': %v", ErrFetchFailed, u.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: '%s': status %d", ErrFetchFailed, u.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedScheme, u.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        u,
	}, nil
}

// Wrap an in-memory stream.
func FromStream(name string, source io.Reader) *Resource {
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        &url.URL{Path: name},
	}
}
