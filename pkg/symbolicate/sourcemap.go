package symbolicate

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
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/go-sourcemap/sourcemap"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrNoSourceMap is returned when the source map of a file is unavailable.
var ErrNoSourceMap = errors.New("source map unavailable")

const (
	defaultMapCacheSize = 64
	defaultFetchTimeout = 10 * time.Second
	maxSourceMapBytes   = 64 << 20
)

// Fetcher loads the raw bytes of a source map.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// HTTPFetcher fetches source maps over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements Fetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", location, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSourceMapBytes))
}

// DirFetcher reads source maps from a local bundle directory, mapping the URL path of
// the served file onto Root.
type DirFetcher struct {
	Root string
}

// Fetch implements Fetcher.
func (f DirFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	rel := filepath.FromSlash(strings.TrimPrefix(u.Path, "/"))
	return os.ReadFile(filepath.Join(f.Root, filepath.Clean(string(filepath.Separator)+rel)))
}

// MapResolver implements ports.SourceMapResolver with `<file>.map` source maps.
type MapResolver struct {
	fetcher Fetcher
	timeout time.Duration
	maps    *lru.Cache[string, *sourcemap.Consumer]
	group   singleflight.Group
}

// MapResolverOption configures the MapResolver.
type MapResolverOption func(*MapResolver)

// WithFetchTimeout bounds a single source map fetch.
func WithFetchTimeout(d time.Duration) MapResolverOption {
	return func(r *MapResolver) {
		r.timeout = d
	}
}

// NewMapResolver creates a resolver loading maps through fetcher.
// It remembers the last cacheSize parsed maps, including failed lookups.
func NewMapResolver(fetcher Fetcher, cacheSize int, opts ...MapResolverOption) *MapResolver {
	if cacheSize <= 0 {
		cacheSize = defaultMapCacheSize
	}
	r := &MapResolver{
		fetcher: fetcher,
		timeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.maps, _ = lru.New[string, *sourcemap.Consumer](cacheSize)
	return r
}

// Resolve implements ports.SourceMapResolver. line and column are 0-based, as
// reported by the browser; the returned Line is 1-based and Column 0-based.
func (r *MapResolver) Resolve(file string, line, column int) (*domain.OriginalLocation, error) {
	consumer, err := r.consumer(file)
	if err != nil {
		return nil, err
	}
	source, name, origLine, origColumn, ok := consumer.Source(line+1, column)
	if !ok {
		return nil, nil
	}
	return &domain.OriginalLocation{
		Source:       source,
		Line:         origLine,
		Column:       origColumn,
		FunctionName: name,
	}, nil
}

func (r *MapResolver) consumer(file string) (*sourcemap.Consumer, error) {
	mapURL := mapLocation(file)
	if c, ok := r.maps.Get(mapURL); ok {
		if c == nil {
			return nil, ErrNoSourceMap
		}
		return c, nil
	}

	v, err, _ := r.group.Do(mapURL, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		data, err := r.fetcher.Fetch(ctx, mapURL)
		if err != nil {
			r.maps.Add(mapURL, nil)
			return nil, fmt.Errorf("%w: %s: %v", ErrNoSourceMap, mapURL, err)
		}
		c, err := sourcemap.Parse(mapURL, data)
		if err != nil {
			r.maps.Add(mapURL, nil)
			return nil, fmt.Errorf("%w: parse %s: %v", ErrNoSourceMap, mapURL, err)
		}
		r.maps.Add(mapURL, c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sourcemap.Consumer), nil
}

// mapLocation strips query and fragment from a served file URL and appends ".map".
func mapLocation(file string) string {
	if i := strings.IndexAny(file, "?#"); i >= 0 {
		file = file[:i]
	}
	return file + ".map"
}
