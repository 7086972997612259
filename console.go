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
	"embed"
	"html"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/michaelquigley/pfxlog"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "github.com/openziti/webconsole"

//go:embed res
var consoleResources embed.FS

// Console dispatches requests below its app root to the plugin named by the first path segment. For each
// request it first tries to serve a static resource of the plugin and otherwise renders the plugin page
// inside the console chrome.
type Console struct {
	DefaultHttpHandlerProviderImpl
	config    *ConsoleConfig
	options   map[interface{}]interface{}
	registry  *PluginRegistry
	resources *Spooler
	tracer    trace.Tracer
}

var _ ApiHandler = &Console{}

// NewConsole creates a Console with an empty PluginRegistry. A nil config uses DefaultConsoleConfig.
func NewConsole(config *ConsoleConfig) *Console {
	if config == nil {
		config = DefaultConsoleConfig()
	}

	resFS, _ := fs.Sub(consoleResources, "res")

	return &Console{
		config: config,
		registry: NewPluginRegistry(ActivationContext{
			Branding: config.Branding,
			AppRoot:  config.AppRootPath(),
		}),
		resources: NewSpooler(FSLocator(resFS, "/res/"), nil),
		tracer:    otel.Tracer(TracerName),
	}
}

// Registry returns the plugins installed in this console.
func (console *Console) Registry() *PluginRegistry {
	return console.registry
}

// Config returns the console configuration.
func (console *Console) Config() *ConsoleConfig {
	return console.config
}

func (console *Console) Binding() string {
	return ConsoleBinding
}

func (console *Console) Options() map[interface{}]interface{} {
	return console.options
}

func (console *Console) RootPath() string {
	return console.config.AppRoot
}

func (console *Console) IsHandler(r *http.Request) bool {
	return r.URL.Path == console.config.AppRoot || strings.HasPrefix(r.URL.Path, console.config.AppRoot+"/")
}

func (console *Console) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !console.IsHandler(r) {
		console.notFound(w, r)
		return
	}

	pathInfo := strings.TrimPrefix(r.URL.Path, console.config.AppRoot)
	if pathInfo == "" || pathInfo == "/" {
		console.redirectToDefault(w, r)
		return
	}

	ctx, span := console.tracer.Start(r.Context(), "webconsole.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("webconsole.path_info", pathInfo),
		))
	defer span.End()

	requestId := RequestIdFromRequestContext(ctx)

	attrs := NewAttributes()
	attrs.Set(AttrAppRoot, console.config.AppRootPath())
	attrs.Set(AttrLabelMap, console.registry.LabelMap())
	attrs.Set(AttrPaths, RequestPaths{
		ContextPath: console.config.ContextPath,
		ServletPath: console.config.AppRoot,
		PathInfo:    pathInfo,
	})
	attrs.Set(AttrUploadThreshold, console.config.UploadSizeThreshold)
	attrs.Set(AttrRequestId, requestId)

	r = WithAttributes(r.WithContext(ctx), attrs)

	defer func() {
		if data, ok := attrs.Get(AttrFileUpload).(*FormData); ok {
			data.RemoveAll()
		}
	}()

	logger := pfxlog.Logger().WithField("path", pathInfo)
	if requestId != "" {
		logger = logger.WithField("requestId", requestId)
	}

	if strings.HasPrefix(pathInfo, "/res/") && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		if outcome := console.spool(w, r, console.resources, pathInfo, span, logger); outcome.Handled() {
			return
		}
	}

	label, _ := currentSegment(pathInfo)
	registration := console.registry.Get(label)
	if registration == nil {
		span.SetAttributes(attribute.Bool("webconsole.not_found", true))
		console.notFound(w, r)
		return
	}

	span.SetAttributes(attribute.String("webconsole.label", label))
	logger = logger.WithField("label", label)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if outcome := console.spool(w, r, registration.Spooler(), pathInfo, span, logger); outcome.Handled() {
			return
		}
		console.render(w, r, registration, span, logger)

	case http.MethodPost:
		console.post(w, r, registration, span, logger)

	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (console *Console) spool(w http.ResponseWriter, r *http.Request, spooler *Spooler, pathInfo string, span trace.Span, logger *logrus.Entry) SpoolOutcome {
	outcome, err := spooler.TrySpool(w, r, pathInfo)

	if outcome != SpoolNoCapability {
		span.SetAttributes(attribute.String("webconsole.spool", outcome.String()))
	}

	if err != nil {
		span.RecordError(err)
	}

	switch outcome {
	case SpoolLocatorFailed:
		logger.WithError(err).Warn("resource locator failed, rendering the page instead")
	case SpoolOpenFailed:
		logger.WithError(err).Error("could not open resource")
		span.SetStatus(codes.Error, "resource open failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	case SpoolInterrupted:
		logger.WithError(err).Error("resource spooling interrupted")
		span.SetStatus(codes.Error, "resource spooling interrupted")
	case SpoolSent, SpoolNotModified:
		logger.Debugf("resource %s", outcome)
	}

	return outcome
}

func (console *Console) render(w http.ResponseWriter, r *http.Request, registration *Registration, span trace.Span, logger *logrus.Entry) {
	pw := StartResponse(w, r, registration.Chrome())

	if err := registration.Plugin().RenderContent(pw, r); err != nil {
		logger.WithError(err).Error("error rendering plugin content")
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		_, _ = io.WriteString(pw, "<p class=\"error\">"+html.EscapeString("Error rendering "+registration.Chrome().PluginTitle)+"</p>\n")
	}

	if err := EndResponse(pw); err != nil {
		logger.WithError(err).Debug("error writing page")
	}
}

func (console *Console) post(w http.ResponseWriter, r *http.Request, registration *Registration, span trace.Span, logger *logrus.Entry) {
	handler, ok := registration.Plugin().(PostHandler)
	if !ok {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	tracked := &committedWriter{ResponseWriter: w}
	if err := handler.HandlePost(tracked, r); err != nil {
		logger.WithError(err).Error("error handling plugin post")
		span.RecordError(err)
		span.SetStatus(codes.Error, "post failed")
		if !tracked.committed {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// redirectToDefault sends requests for the app root to the configured default plugin or, if that is not
// installed, to the first plugin by label.
func (console *Console) redirectToDefault(w http.ResponseWriter, r *http.Request) {
	label := console.config.DefaultPlugin
	if label == "" || console.registry.Get(label) == nil {
		labels := console.registry.Labels()
		if len(labels) == 0 {
			console.notFound(w, r)
			return
		}
		label = labels[0]
	}

	http.Redirect(w, r, console.config.AppRootPath()+"/"+label, http.StatusFound)
}

func (console *Console) notFound(w http.ResponseWriter, r *http.Request) {
	if handler := console.GetDefaultHttpHandler(); handler != nil {
		handler.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

type committedWriter struct {
	http.ResponseWriter
	committed bool
}

func (w *committedWriter) WriteHeader(statusCode int) {
	w.committed = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *committedWriter) Write(b []byte) (int, error) {
	w.committed = true
	return w.ResponseWriter.Write(b)
}

func (w *committedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
