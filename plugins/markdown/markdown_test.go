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

package markdown

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/openziti/webconsole"
	"github.com/stretchr/testify/require"
)

func Test_Plugin(t *testing.T) {
	t.Run("renders the bundled document", func(t *testing.T) {
		req := require.New(t)
		p := New("about", "About")
		req.NoError(p.Activate(&webconsole.ActivationContext{AppRoot: "/system/console"}))

		out := &bytes.Buffer{}
		req.NoError(p.RenderContent(out, httptest.NewRequest(http.MethodGet, "/system/console/about", nil)))

		req.Contains(out.String(), "<h1")
		req.Contains(out.String(), "Web Console</h1>")
		req.Contains(out.String(), `href="/system/console/about/res/markdown.css"`)
	})

	t.Run("sanitizes raw html", func(t *testing.T) {
		req := require.New(t)
		p := New("notes", "Notes", WithSource([]byte("hello <script>alert(1)</script> **world**")))

		out := &bytes.Buffer{}
		req.NoError(p.RenderContent(out, httptest.NewRequest(http.MethodGet, "/notes", nil)))

		req.NotContains(out.String(), "<script>")
		req.Contains(out.String(), "<strong>world</strong>")
	})

	t.Run("reads the file on every render", func(t *testing.T) {
		req := require.New(t)
		path := filepath.Join(t.TempDir(), "notes.md")
		req.NoError(os.WriteFile(path, []byte("first"), 0o600))

		p := New("notes", "Notes", WithFile(path))
		req.NoError(p.Activate(&webconsole.ActivationContext{}))

		out := &bytes.Buffer{}
		req.NoError(p.RenderContent(out, httptest.NewRequest(http.MethodGet, "/notes", nil)))
		req.Contains(out.String(), "first")

		req.NoError(os.WriteFile(path, []byte("second"), 0o600))
		out.Reset()
		req.NoError(p.RenderContent(out, httptest.NewRequest(http.MethodGet, "/notes", nil)))
		req.Contains(out.String(), "second")
	})

	t.Run("activation fails for a missing file", func(t *testing.T) {
		req := require.New(t)
		p := New("notes", "Notes", WithFile(filepath.Join(t.TempDir(), "missing.md")))
		req.Error(p.Activate(&webconsole.ActivationContext{}))
	})

	t.Run("serves the stylesheet through its delegate", func(t *testing.T) {
		req := require.New(t)
		p := New("about", "About")

		probe := webconsole.ProbeResourceLocator(p, nil)
		req.True(probe.Found())
		req.Equal(webconsole.ProbeDelegate, probe.Source)

		res, err := probe.Locator("/about/res/markdown.css")
		req.NoError(err)
		req.NotNil(res)

		body, _, err := res.Open()
		req.NoError(err)
		defer func() { _ = body.Close() }()
		content, err := io.ReadAll(body)
		req.NoError(err)
		req.Contains(string(content), ".markdown")

		res, err = probe.Locator("/about/other")
		req.NoError(err)
		req.Nil(res)
	})
}
