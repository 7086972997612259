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
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"
)

func Test_NegotiateEncoding(t *testing.T) {
	t.Run("prefers brotli", func(t *testing.T) {
		req := require.New(t)
		req.Equal(EncodingBrotli, NegotiateEncoding("gzip, deflate, br"))
	})

	t.Run("falls back to gzip", func(t *testing.T) {
		req := require.New(t)
		req.Equal(EncodingGzip, NegotiateEncoding("gzip;q=0.8, identity"))
	})

	t.Run("q zero refuses an encoding", func(t *testing.T) {
		req := require.New(t)
		req.Equal(EncodingGzip, NegotiateEncoding("br;q=0, gzip"))
	})

	t.Run("none acceptable", func(t *testing.T) {
		req := require.New(t)
		req.Equal("", NegotiateEncoding(""))
		req.Equal("", NegotiateEncoding("identity"))
	})
}

func Test_CompressionHandler(t *testing.T) {
	payload := strings.Repeat("web console ", 200)

	handler := NewCompressionHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/not-modified":
			w.WriteHeader(http.StatusNotModified)
		case "/encoded":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write([]byte("already"))
		default:
			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("Content-Length", "2400")
			_, _ = io.WriteString(w, payload)
		}
	}))

	t.Run("brotli body decodes to the original", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept-Encoding", "br")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, r)

		req.Equal("br", rec.Header().Get("Content-Encoding"))
		req.Empty(rec.Header().Get("Content-Length"))
		body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
		req.NoError(err)
		req.Equal(payload, string(body))
	})

	t.Run("gzip body decodes to the original", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, r)

		req.Equal("gzip", rec.Header().Get("Content-Encoding"))
		reader, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
		req.NoError(err)
		body, err := io.ReadAll(reader)
		req.NoError(err)
		req.Equal(payload, string(body))
	})

	t.Run("no accept encoding passes through", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		req.Empty(rec.Header().Get("Content-Encoding"))
		req.Equal(payload, rec.Body.String())
	})

	t.Run("304 has no encoding", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/not-modified", nil)
		r.Header.Set("Accept-Encoding", "br")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, r)

		req.Equal(http.StatusNotModified, rec.Code)
		req.Empty(rec.Header().Get("Content-Encoding"))
		req.Zero(rec.Body.Len())
	})

	t.Run("already encoded responses are untouched", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/encoded", nil)
		r.Header.Set("Accept-Encoding", "br")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, r)

		req.Equal("gzip", rec.Header().Get("Content-Encoding"))
		req.Equal("already", rec.Body.String())
	})
}
