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

package webconsole

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func navigationRequest(pathInfo string, labels map[string]string) *http.Request {
	attrs := NewAttributes()
	attrs.Set(AttrAppRoot, "/system/console")
	attrs.Set(AttrPaths, RequestPaths{ServletPath: "/system/console", PathInfo: pathInfo})
	if labels != nil {
		attrs.Set(AttrLabelMap, labels)
	}
	return WithAttributes(httptest.NewRequest(http.MethodGet, "/system/console"+pathInfo, nil), attrs)
}

func Test_RenderTopNavigation(t *testing.T) {
	t.Run("the current entry is emphasized and the others link", func(t *testing.T) {
		req := require.New(t)
		out := &bytes.Buffer{}

		RenderTopNavigation(out, navigationRequest("/b", map[string]string{"a": "Alpha", "b": "Beta"}))

		req.Equal("<ul id='technav'>\n"+
			"<li><a href='/system/console/a'>Alpha</a></li>\n"+
			"<li><span class='technavat'>Beta</span></li>\n"+
			"</ul>\n", out.String())
	})

	t.Run("the current entry links back from a sub page", func(t *testing.T) {
		req := require.New(t)
		out := &bytes.Buffer{}

		RenderTopNavigation(out, navigationRequest("/b/details", map[string]string{"a": "Alpha", "b": "Beta"}))

		req.Contains(out.String(), "<li><a class='technavat' href='/system/console/b'>Beta</a></li>")
	})

	t.Run("entries are ordered by title", func(t *testing.T) {
		req := require.New(t)
		out := &bytes.Buffer{}

		RenderTopNavigation(out, navigationRequest("/z", map[string]string{"z": "Apples", "a": "Zebras"}))

		req.Less(strings.Index(out.String(), "Apples"), strings.Index(out.String(), "Zebras"))
	})

	t.Run("titles are escaped and empty labels skipped", func(t *testing.T) {
		req := require.New(t)
		out := &bytes.Buffer{}

		RenderTopNavigation(out, navigationRequest("/a", map[string]string{"a": "<b>Bold</b>", "": "Nameless"}))

		req.Contains(out.String(), "&lt;b&gt;Bold&lt;/b&gt;")
		req.NotContains(out.String(), "Nameless")
	})

	t.Run("a shared title shows the greatest label", func(t *testing.T) {
		req := require.New(t)
		out := &bytes.Buffer{}

		RenderTopNavigation(out, navigationRequest("/x", map[string]string{"a": "Same", "c": "Same", "b": "Same"}))

		req.Equal(1, strings.Count(out.String(), "<li>"))
		req.Contains(out.String(), "href='/system/console/c'")
	})

	t.Run("no label map renders nothing", func(t *testing.T) {
		req := require.New(t)
		out := &bytes.Buffer{}

		RenderTopNavigation(out, navigationRequest("/a", nil))
		req.Zero(out.Len())

		RenderTopNavigation(out, httptest.NewRequest(http.MethodGet, "/", nil))
		req.Zero(out.Len())
	})
}

func Test_StartResponse(t *testing.T) {
	t.Run("writes the chrome around the content", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()
		chrome := ChromeContext{
			Branding: Branding{
				AdminTitle:  "Ops & Admin",
				ProductName: "Web Console",
				ProductWeb:  "https://example.org",
				VendorName:  "Example",
			},
			AppRoot:     "/system/console",
			PluginLabel: "b",
			PluginTitle: "Beta",
		}

		pw := StartResponse(rec, navigationRequest("/b", map[string]string{"a": "Alpha", "b": "Beta"}), chrome)
		_, err := pw.WriteString("<p>content</p>")
		req.NoError(err)
		req.NoError(EndResponse(pw))

		body := rec.Body.String()
		req.Equal("text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		req.Contains(body, "<title>Ops &amp; Admin - Beta</title>")
		req.Contains(body, `href="/system/console/res/ui/webconsole.css"`)
		req.Contains(body, `data-plugin-root="/system/console/b"`)
		req.Contains(body, "<p class=\"vendor\">Example</p>")

		nav := strings.Index(body, "<ul id='technav'>")
		content := strings.Index(body, "<div id=\"content\">")
		payload := strings.Index(body, "<p>content</p>")
		req.True(nav > 0 && content > nav && payload > content)
		req.True(strings.HasSuffix(body, "</html>\n"))
	})
}

func Test_currentSegment(t *testing.T) {
	t.Run("splits the first segment", func(t *testing.T) {
		req := require.New(t)

		label, nested := currentSegment("/logs")
		req.Equal("logs", label)
		req.False(nested)

		label, nested = currentSegment("/logs/today")
		req.Equal("logs", label)
		req.True(nested)

		label, nested = currentSegment("/logs/")
		req.Equal("logs", label)
		req.True(nested)
	})
}
