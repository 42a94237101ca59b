// File: internal/network/compression.go
package network

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is advertised when the caller did not set its own header.
const AcceptEncoding = "br, gzip, deflate"

var (
	gzipReaders   = sync.Pool{New: func() any { return new(gzip.Reader) }}
	brotliReaders = sync.Pool{New: func() any { return brotli.NewReader(nil) }}
)

// decoder wraps src in a decompressing reader. release, when non-nil, hands
// pooled state back once the body is closed.
type decoder func(src io.Reader) (rc io.ReadCloser, release func(), err error)

var decoders = map[string]decoder{
	"gzip":    decodeGzip,
	"x-gzip":  decodeGzip,
	"br":      decodeBrotli,
	"deflate": decodeDeflate,
}

func decodeGzip(src io.Reader) (io.ReadCloser, func(), error) {
	zr := gzipReaders.Get().(*gzip.Reader)
	if err := zr.Reset(src); err != nil {
		gzipReaders.Put(zr)
		return nil, nil, err
	}
	return zr, func() { gzipReaders.Put(zr) }, nil
}

func decodeBrotli(src io.Reader) (io.ReadCloser, func(), error) {
	br := brotliReaders.Get().(*brotli.Reader)
	if err := br.Reset(src); err != nil {
		brotliReaders.Put(br)
		return nil, nil, err
	}
	return io.NopCloser(br), func() {
		_ = br.Reset(strings.NewReader(""))
		brotliReaders.Put(br)
	}, nil
}

// decodeDeflate accepts both zlib-wrapped and raw deflate streams; servers
// disagree on what "deflate" means.
func decodeDeflate(src io.Reader) (io.ReadCloser, func(), error) {
	buffered := bufio.NewReader(src)
	header, err := buffered.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	if len(header) == 2 && isZlibHeader(header[0], header[1]) {
		zr, err := zlib.NewReader(buffered)
		return zr, nil, err
	}
	return flate.NewReader(buffered), nil, nil
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// decodedBody closes the decoder, returns pooled state and closes the
// original body.
type decodedBody struct {
	io.ReadCloser
	original io.ReadCloser
	release  func()
}

func (b *decodedBody) Close() error {
	err := b.ReadCloser.Close()
	if b.release != nil {
		b.release()
		b.release = nil
	}
	return errors.Join(err, b.original.Close())
}

// CompressionMiddleware is an http.RoundTripper that negotiates compression
// and transparently decodes the response body.
type CompressionMiddleware struct {
	Transport http.RoundTripper
}

// NewCompressionMiddleware wraps transport. A nil transport uses
// http.DefaultTransport.
func NewCompressionMiddleware(transport http.RoundTripper) *CompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CompressionMiddleware{Transport: transport}
}

func (cm *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", AcceptEncoding)
	}
	resp, err := cm.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

// DecompressResponse replaces resp.Body with a decoding reader for every
// layer listed in Content-Encoding, last applied first. On error the body may
// be partially consumed and the response should be discarded.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	var layers []string
	for _, v := range resp.Header.Values("Content-Encoding") {
		for _, enc := range strings.Split(v, ",") {
			if enc = strings.ToLower(strings.TrimSpace(enc)); enc != "" && enc != "identity" {
				layers = append(layers, enc)
			}
		}
	}
	if len(layers) == 0 {
		return nil
	}

	for i := len(layers) - 1; i >= 0; i-- {
		decode, ok := decoders[layers[i]]
		if !ok {
			return fmt.Errorf("unsupported Content-Encoding layer: %s", layers[i])
		}
		rc, release, err := decode(resp.Body)
		if err != nil {
			return fmt.Errorf("%s initialization error: %w", layers[i], err)
		}
		resp.Body = &decodedBody{ReadCloser: rc, original: resp.Body, release: release}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}
