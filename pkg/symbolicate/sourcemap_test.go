package symbolicate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aretw0/reel/pkg/symbolicate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two segments on generated line 1: col 0 -> Video.tsx 1:0 "render", col 10 -> Video.tsx 3:4 "helper".
const bundleMap = `{
	"version": 3,
	"file": "bundle.js",
	"sources": ["src/Video.tsx"],
	"names": ["render", "helper"],
	"mappings": "AAAAA,UAEIC"
}`

func TestMapResolver_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle.js.map"), []byte(bundleMap), 0o644))

	r := symbolicate.NewMapResolver(symbolicate.DirFetcher{Root: dir}, 8)
	file := "http://localhost:3000/bundle.js?v=1"

	loc, err := r.Resolve(file, 0, 3)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "http://localhost:3000/src/Video.tsx", loc.Source)
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 0, loc.Column)
	assert.Equal(t, "render", loc.FunctionName)

	loc, err = r.Resolve(file, 0, 12)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, 3, loc.Line)
	assert.Equal(t, 4, loc.Column)
	assert.Equal(t, "helper", loc.FunctionName)

	loc, err = r.Resolve(file, 5, 0)
	assert.NoError(t, err)
	assert.Nil(t, loc, "unmapped lines resolve to nothing")
}

func TestMapResolver_MissingMapIsRemembered(t *testing.T) {
	var fetches int32
	fetcher := fetcherFunc(func(ctx context.Context, location string) ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		return nil, errors.New("404")
	})
	r := symbolicate.NewMapResolver(fetcher, 8)

	_, err := r.Resolve("http://localhost:3000/vendor.js", 0, 0)
	assert.ErrorIs(t, err, symbolicate.ErrNoSourceMap)
	_, err = r.Resolve("http://localhost:3000/vendor.js", 1, 0)
	assert.ErrorIs(t, err, symbolicate.ErrNoSourceMap)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestMapResolver_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bundle.js.map" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(bundleMap))
	}))
	defer srv.Close()

	r := symbolicate.NewMapResolver(symbolicate.HTTPFetcher{Client: srv.Client()}, 8)
	loc, err := r.Resolve(srv.URL+"/bundle.js", 0, 11)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, srv.URL+"/src/Video.tsx", loc.Source)
	assert.Equal(t, "helper", loc.FunctionName)

	_, err = r.Resolve(srv.URL+"/missing.js", 0, 0)
	assert.ErrorIs(t, err, symbolicate.ErrNoSourceMap)
}

type fetcherFunc func(ctx context.Context, location string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}
