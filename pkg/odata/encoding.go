package odata

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding is advertised on every request. Setting it explicitly
// disables net/http's transparent gzip handling, so decodeBody must cover
// every listed coding.
const acceptEncoding = "gzip, deflate, br, zstd"

// zstdDecoder is shared; DecodeAll is safe for concurrent use and a
// concurrency of 1 keeps decoding on the caller's goroutine.
var zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))

// decodeBody reverses the codings listed in a Content-Encoding header.
// Codings are applied in listed order, so they are removed last to first.
func decodeBody(raw []byte, contentEncoding string) ([]byte, error) {
	if contentEncoding == "" {
		return raw, nil
	}
	encodings := strings.Split(contentEncoding, ",")
	body := raw
	for i := len(encodings) - 1; i >= 0; i-- {
		encoding := strings.TrimSpace(strings.ToLower(encodings[i]))
		var err error
		switch encoding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			body, err = readAllFrom(gzip.NewReader(bytes.NewReader(body)))
		case "deflate":
			body, err = inflate(body)
		case "br":
			body, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		case "zstd":
			body, err = zstdDecoder.DecodeAll(body, nil)
		default:
			return nil, fmt.Errorf("unsupported content encoding %q", encoding)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s body: %w", encoding, err)
		}
	}
	return body, nil
}

// inflate decodes an HTTP deflate body. The coding is zlib-framed, but some
// servers send raw DEFLATE, which is accepted as well.
func inflate(body []byte) ([]byte, error) {
	if out, err := readAllFrom(zlib.NewReader(bytes.NewReader(body))); err == nil {
		return out, nil
	}
	return io.ReadAll(flate.NewReader(bytes.NewReader(body)))
}

func readAllFrom(r io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
