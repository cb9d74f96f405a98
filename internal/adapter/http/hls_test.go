package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHLSServe_Playlist(t *testing.T) {
	f := newServerFixture()
	_, err := f.blobs.Put("tok-1/master.m3u8", strings.NewReader("#EXTM3U\n"))
	require.NoError(t, err)

	rec := f.do(t, "GET", "/hls/tok-1/master.m3u8", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Equal(t, "#EXTM3U\n", rec.Body.String())
}

func TestHLSServe_Segment(t *testing.T) {
	f := newServerFixture()
	_, err := f.blobs.Put("tok-1/720p/segment0.ts", strings.NewReader("segment bytes"))
	require.NoError(t, err)

	rec := f.do(t, "GET", "/hls/tok-1/720p/segment0.ts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.Equal(t, "segment bytes", rec.Body.String())
}

func TestHLSServe_RangeRequest(t *testing.T) {
	f := newServerFixture()
	_, err := f.blobs.Put("tok-1/720p/segment0.ts", strings.NewReader("0123456789"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/hls/tok-1/720p/segment0.ts", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "2345", rec.Body.String())
}

func TestHLSServe_MissingBlob(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, "GET", "/hls/tok-1/master.m3u8", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHLSServe_SourceTreeHidden(t *testing.T) {
	f := newServerFixture()
	_, err := f.blobs.Put("tok-1/source/clip.mp4", strings.NewReader("raw source"))
	require.NoError(t, err)

	rec := f.do(t, "GET", "/hls/tok-1/source/clip.mp4", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHLSServe_RejectsTraversal(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, "GET", "/hls/tok-1/..%2f..%2fsecrets", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/vnd.apple.mpegurl", contentTypeFor("720p/playlist.m3u8"))
	assert.Equal(t, "video/mp2t", contentTypeFor("720p/segment3.ts"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("720p/thumb.jpg"))
}
