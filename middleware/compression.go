/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package middleware

import (
	"bufio"
	"compress/gzip"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"
)

const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"
)

// NewCompressionHandler wraps a http.Handler and compresses response bodies with brotli or gzip when the client
// accepts it. Responses without a body (304, 204, HEAD) and responses that already carry a Content-Encoding are
// passed through untouched.
func NewCompressionHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		encoding := NegotiateEncoding(request.Header.Get("Accept-Encoding"))
		writer.Header().Add("Vary", "Accept-Encoding")

		if encoding == "" || request.Method == http.MethodHead {
			handler.ServeHTTP(writer, request)
			return
		}

		cw := &compressionWriter{
			ResponseWriter: writer,
			encoding:       encoding,
		}
		defer func() {
			_ = cw.Close()
		}()

		handler.ServeHTTP(cw, request)
	})
}

// NegotiateEncoding picks brotli over gzip from an Accept-Encoding header. Encodings with q=0 are refused.
func NegotiateEncoding(acceptEncoding string) string {
	accepted := map[string]bool{}
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		params = strings.ReplaceAll(params, " ", "")
		accepted[name] = params != "q=0" && params != "q=0.0" && params != "q=0.00" && params != "q=0.000"
	}

	switch {
	case accepted[EncodingBrotli]:
		return EncodingBrotli
	case accepted[EncodingGzip]:
		return EncodingGzip
	default:
		return ""
	}
}

type compressionWriter struct {
	http.ResponseWriter
	encoding    string
	encoder     io.WriteCloser
	wroteHeader bool
	passThrough bool
}

func (w *compressionWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	header := w.ResponseWriter.Header()
	if !bodyAllowed(statusCode) || header.Get("Content-Encoding") != "" {
		w.passThrough = true
		w.ResponseWriter.WriteHeader(statusCode)
		return
	}

	header.Set("Content-Encoding", w.encoding)
	header.Del("Content-Length")

	switch w.encoding {
	case EncodingBrotli:
		w.encoder = brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
	default:
		w.encoder = gzip.NewWriter(w.ResponseWriter)
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *compressionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.ResponseWriter.Header().Get("Content-Type") == "" {
			w.ResponseWriter.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}

	if w.passThrough {
		return w.ResponseWriter.Write(b)
	}

	return w.encoder.Write(b)
}

// Flush flushes buffered compressed data to the client.
func (w *compressionWriter) Flush() {
	if flusher, ok := w.encoder.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *compressionWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, errors.New("underlying response writer does not support hijacking")
}

func (w *compressionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *compressionWriter) Close() error {
	if w.encoder == nil {
		return nil
	}
	return w.encoder.Close()
}

func bodyAllowed(statusCode int) bool {
	switch {
	case statusCode >= 100 && statusCode <= 199:
		return false
	case statusCode == http.StatusNoContent, statusCode == http.StatusNotModified:
		return false
	}
	return true
}
