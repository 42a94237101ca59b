// File: internal/network/compression_test.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBody = `{"status":0,"value":"compressed envelope"}`

func compress(t *testing.T, data, encoding string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "raw-deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		w = fw
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		t.Fatalf("unsupported encoding %q", encoding)
	}
	_, err := io.WriteString(w, data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestCompressionMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		source string
		header string
	}{
		{"gzip", "gzip", "gzip"},
		{"zlib deflate", "deflate", "deflate"},
		{"raw deflate", "raw-deflate", "deflate"},
		{"brotli", "br", "br"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := compress(t, testBody, tc.source)
			accepted := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				accepted <- r.Header.Get("Accept-Encoding")
				w.Header().Set("Content-Encoding", tc.header)
				_, _ = w.Write(payload)
			}))
			defer srv.Close()

			client := &http.Client{Transport: NewCompressionMiddleware(&http.Transport{DisableCompression: true})}
			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, testBody, string(body))
			assert.Equal(t, AcceptEncoding, <-accepted)
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
			assert.True(t, resp.Uncompressed)
		})
	}
}

func TestDecompressResponse_Layers(t *testing.T) {
	inner := compress(t, testBody, "gzip")
	outer := compress(t, string(inner), "br")
	resp := &http.Response{
		Header: http.Header{"Content-Encoding": []string{"gzip, br"}},
		Body:   io.NopCloser(bytes.NewReader(outer)),
	}

	require.NoError(t, DecompressResponse(resp))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testBody, string(body))
	assert.NoError(t, resp.Body.Close())
}

func TestDecompressResponse_Identity(t *testing.T) {
	resp := &http.Response{
		Header: http.Header{"Content-Encoding": []string{"identity"}},
		Body:   io.NopCloser(strings.NewReader(testBody)),
	}
	require.NoError(t, DecompressResponse(resp))
	assert.False(t, resp.Uncompressed)
}

func TestDecompressResponse_Unsupported(t *testing.T) {
	resp := &http.Response{
		Header: http.Header{"Content-Encoding": []string{"zstd"}},
		Body:   io.NopCloser(strings.NewReader("x")),
	}
	assert.ErrorContains(t, DecompressResponse(resp), "unsupported Content-Encoding layer: zstd")
}

func TestCompressionMiddleware_KeepsCallerHeader(t *testing.T) {
	accepted := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accepted <- r.Header.Get("Accept-Encoding")
		_, _ = io.WriteString(w, testBody)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := (&http.Client{Transport: NewCompressionMiddleware(nil)}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "identity", <-accepted)
}
