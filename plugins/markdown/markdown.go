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
	"embed"
	"fmt"
	"html"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/openziti/webconsole"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

//go:embed default.md res
var embedded embed.FS

// Plugin renders a markdown document as a console page. The document is either supplied in memory or read
// from a file on every request, so edits show up without a restart.
type Plugin struct {
	label    string
	title    string
	source   []byte
	file     string
	appRoot  string
	renderer goldmark.Markdown
	policy   *bluemonday.Policy
}

var _ webconsole.Plugin = &Plugin{}
var _ webconsole.ResourceProviderDelegate = &Plugin{}
var _ webconsole.Activator = &Plugin{}

type Option func(*Plugin)

// WithSource renders the given markdown.
func WithSource(source []byte) Option {
	return func(p *Plugin) {
		p.source = source
		p.file = ""
	}
}

// WithFile renders the markdown file at path.
func WithFile(path string) Option {
	return func(p *Plugin) {
		p.file = path
		p.source = nil
	}
}

// New creates a markdown plugin. Without options the bundled console introduction is rendered.
func New(label, title string, options ...Option) *Plugin {
	p := &Plugin{
		label: label,
		title: title,
		renderer: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}

	p.source, _ = embedded.ReadFile("default.md")

	for _, option := range options {
		option(p)
	}

	return p
}

func (p *Plugin) Label() string {
	return p.label
}

func (p *Plugin) Title() string {
	return p.title
}

func (p *Plugin) Activate(ctx *webconsole.ActivationContext) error {
	p.appRoot = ctx.AppRoot

	if p.file != "" {
		if _, err := os.Stat(p.file); err != nil {
			return errors.Wrapf(err, "markdown file for plugin [%s] is not readable", p.label)
		}
	}

	return nil
}

// ResourceProvider serves the bundled stylesheet below /{label}/res/.
func (p *Plugin) ResourceProvider() interface{} {
	resFS, err := fs.Sub(embedded, "res")
	if err != nil {
		return nil
	}
	return webconsole.FSLocator(resFS, "/"+p.label+"/res/")
}

// RenderContent converts the document to HTML and sanitizes the result, raw HTML in the markdown is kept
// only where the sanitizer allows it.
func (p *Plugin) RenderContent(w io.Writer, _ *http.Request) error {
	source, err := p.document()
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	if err = p.renderer.Convert(source, buf); err != nil {
		return errors.Wrapf(err, "could not render markdown for plugin [%s]", p.label)
	}

	_, err = fmt.Fprintf(w, "<link rel=\"stylesheet\" href=\"%s/%s/res/markdown.css\">\n<div class=\"markdown\">\n%s</div>\n",
		html.EscapeString(p.appRoot), html.EscapeString(p.label), p.policy.SanitizeBytes(buf.Bytes()))
	return err
}

func (p *Plugin) document() ([]byte, error) {
	if p.file == "" {
		return p.source, nil
	}

	source, err := os.ReadFile(p.file)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read markdown file %s", p.file)
	}
	return source, nil
}
