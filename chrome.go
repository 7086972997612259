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
	"bufio"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strings"
)

const (
	DefaultAdminTitle  = "Management Console"
	DefaultProductName = "Web Console"
)

const chromeHeader = `<!DOCTYPE html>
<html>
<head>
<meta http-equiv="Content-Type" content="text/html; charset=utf-8">
<title>%[1]s - %[3]s</title>
<link href="%[6]s/res/ui/webconsole.css" rel="stylesheet" type="text/css">
<script src="%[6]s/res/ui/webconsole.js"></script>
</head>
<body data-app-root="%[6]s" data-plugin-root="%[6]s/%[7]s">
<div id="main">
<div id="lead">
<h1>%[1]s<br>%[3]s</h1>
<p><a target="_blank" href="%[4]s" title="%[2]s"><img src="%[6]s/res/imgs/logo.svg" width="165" height="63" alt="%[2]s"></a></p>
<p class="vendor">%[5]s</p>
</div>
`

const chromeFooter = `</div>
</div>
</body>
</html>
`

// Branding holds the product and vendor strings shown by the chrome. It is console configuration and is
// not modified after the console is built.
type Branding struct {
	AdminTitle  string
	ProductName string
	ProductWeb  string
	VendorName  string
}

// Default fills empty titles with their defaults.
func (branding *Branding) Default() {
	if branding.AdminTitle == "" {
		branding.AdminTitle = DefaultAdminTitle
	}
	if branding.ProductName == "" {
		branding.ProductName = DefaultProductName
	}
}

// ChromeContext is everything the chrome needs to render the page of one plugin.
type ChromeContext struct {
	Branding
	AppRoot     string
	PluginLabel string
	PluginTitle string
}

// PageWriter is the buffered output of a chrome page. Write errors are sticky and reported by EndResponse.
type PageWriter struct {
	*bufio.Writer
}

// StartResponse sets the HTML content type, writes the chrome header and the top navigation and returns the
// writer for the plugin content.
func StartResponse(w http.ResponseWriter, r *http.Request, chrome ChromeContext) *PageWriter {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	pw := &PageWriter{Writer: bufio.NewWriter(w)}

	_, _ = fmt.Fprintf(pw, chromeHeader,
		html.EscapeString(chrome.AdminTitle),
		html.EscapeString(chrome.ProductName),
		html.EscapeString(chrome.PluginTitle),
		html.EscapeString(chrome.ProductWeb),
		html.EscapeString(chrome.VendorName),
		html.EscapeString(chrome.AppRoot),
		html.EscapeString(chrome.PluginLabel),
	)

	RenderTopNavigation(pw, r)

	_, _ = io.WriteString(pw, "<div id=\"content\">\n")

	return pw
}

// RenderTopNavigation writes the navigation built from the AttrLabelMap request attribute. Nothing is
// written if the attribute is missing. Entries are ordered by title, entries without a label are skipped
// and of several entries sharing a title the one with the greatest label is shown. The entry of the
// current plugin is emphasized, and only links back to the plugin root when a sub page is shown.
func RenderTopNavigation(w io.Writer, r *http.Request) {
	attrs := AttributesFromRequest(r)

	labelMap := attrs.LabelMap()
	if labelMap == nil {
		return
	}

	appRoot := attrs.String(AttrAppRoot)
	current, nested := currentSegment(attrs.Paths(r).PathInfo)

	labels := make([]string, 0, len(labelMap))
	for label := range labelMap {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	entries := map[string]string{}
	for _, label := range labels {
		if label == "" {
			continue
		}

		title := labelMap[label]
		href := html.EscapeString(appRoot + "/" + label)
		text := html.EscapeString(title)

		switch {
		case label == current && nested:
			entries[title] = "<a class='technavat' href='" + href + "'>" + text + "</a>"
		case label == current:
			entries[title] = "<span class='technavat'>" + text + "</span>"
		default:
			entries[title] = "<a href='" + href + "'>" + text + "</a>"
		}
	}

	titles := make([]string, 0, len(entries))
	for title := range entries {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	_, _ = io.WriteString(w, "<ul id='technav'>\n")
	for _, title := range titles {
		_, _ = io.WriteString(w, "<li>"+entries[title]+"</li>\n")
	}
	_, _ = io.WriteString(w, "</ul>\n")
}

// EndResponse writes the chrome footer and flushes the page.
func EndResponse(pw *PageWriter) error {
	_, _ = io.WriteString(pw, chromeFooter)
	return pw.Flush()
}

// currentSegment returns the first segment of pathInfo and whether more segments follow it.
func currentSegment(pathInfo string) (string, bool) {
	trimmed := strings.TrimPrefix(pathInfo, "/")
	if slash := strings.IndexByte(trimmed, '/'); slash >= 0 {
		return trimmed[:slash], true
	}
	return trimmed, false
}
