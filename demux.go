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
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/michaelquigley/pfxlog"
)

// DemuxFactory generates a http.Handler that interrogates a http.Request and routes them to ApiHandler instances. The selected
// ApiHandler is added to the context with a key of HandlerContextKey. Each DemuxFactory implementation must define
// its own behaviors for an unmatched http.Request.
type DemuxFactory interface {
	Build(handlers []ApiHandler) (DemuxHandler, error)
}

type DemuxHandler interface {
	DefaultHttpHandlerProvider
	http.Handler
}

type DemuxHandlerImpl struct {
	DefaultHttpHandlerProviderImpl
	Handler http.Handler
}

var _ DemuxHandler = &DemuxHandlerImpl{}

func (d *DemuxHandlerImpl) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	d.Handler.ServeHTTP(writer, request)
}

// PathPrefixDemuxFactory is a DemuxFactory that routes http.Request requests to a specific ApiHandler from a set of
// ApiHandler's by URL path prefixes. A root path only matches whole path segments, "/system/console" matches
// "/system/console/notes" but not "/system/consoles". A http.Handler for NoHandlerFound can be provided to specify
// behavior to perform when a ApiHandler is not selected. By default an empty response with a http.StatusNotFound
// (404) will be sent.
type PathPrefixDemuxFactory struct {
	DefaultHttpHandlerProviderImpl
}

var _ DemuxFactory = &PathPrefixDemuxFactory{}

// Build performs ApiHandler selection based on URL path prefixes
func (factory *PathPrefixDemuxFactory) Build(handlers []ApiHandler) (DemuxHandler, error) {
	defaultApi, err := getDefault(handlers)

	if err != nil {
		return nil, err
	}

	handlerMap := map[string]ApiHandler{}

	for _, handler := range handlers {
		if existing, ok := handlerMap[handler.RootPath()]; ok {
			return nil, fmt.Errorf("duplicate root path [%s] detected for both bindings [%s] and [%s]", handler.RootPath(), handler.Binding(), existing.Binding())
		}
		handlerMap[handler.RootPath()] = handler
	}

	return &DemuxHandlerImpl{
		Handler: http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			for _, handler := range handlers {
				if matchesRootPath(request.URL.Path, handler.RootPath()) {
					serveWithHandler(handler, writer, request)
					return
				}
			}

			serveUnmatched(defaultApi, factory, writer, request)
		}),
	}, nil
}

func matchesRootPath(path, rootPath string) bool {
	if rootPath == "" || rootPath == "/" {
		return true
	}
	return path == rootPath || strings.HasPrefix(path, strings.TrimSuffix(rootPath, "/")+"/")
}

// serveWithHandler stores the ApiHandler on the request context, useful for logging by downstream http handlers,
// and defers to it
func serveWithHandler(handler ApiHandler, writer http.ResponseWriter, request *http.Request) {
	ctx := context.WithValue(request.Context(), HandlerContextKey, handler)
	handler.ServeHTTP(writer, request.WithContext(ctx))
}

func serveUnmatched(defaultApi ApiHandler, provider DefaultHttpHandlerProvider, writer http.ResponseWriter, request *http.Request) {
	if defaultApi != nil {
		serveWithHandler(defaultApi, writer, request)
		return
	}

	if defaultHttpHandler := provider.GetDefaultHttpHandler(); defaultHttpHandler != nil {
		defaultHttpHandler.ServeHTTP(writer, request)
		return
	}

	writer.WriteHeader(http.StatusNotFound)
	_, _ = writer.Write([]byte{})
}

// getDefault determines from a slice of ApiHandler which will act as the default handlers
// should a request not match any handler. The default is determined in one of two ways:
// 1) a handler declares itself the default
// 2) no handler declares itself the default
//
// If a handler declares itself the default, only one is allowed to do so and if another
// handler does so, it will generate an error. If no handler declares itself, the
// last handler will be used.
func getDefault(handlers []ApiHandler) (ApiHandler, error) {
	var defaults []ApiHandler

	if len(handlers) == 0 {
		return nil, errors.New("no handlers provided")
	}

	for _, handler := range handlers {
		if curHandler, ok := handler.(DefaultApiHandler); ok {
			if curHandler.IsDefault() {
				defaults = append(defaults, curHandler)
			}
		}
	}

	if len(defaults) == 0 {
		lastHandler := handlers[len(handlers)-1]
		pfxlog.Logger().Debugf("no default handlers were found, using the last handler [Binding: %s, Type: %T] as the default", lastHandler.Binding(), lastHandler)
		return lastHandler, nil
	}

	if len(defaults) > 1 {
		var names []string
		for _, handler := range defaults {
			name := fmt.Sprintf("[Binding: %s, Type: %T]", handler.Binding(), handler)
			names = append(names, name)
		}

		strNames := strings.Join(names, ",")
		return nil, errors.New("too many default handlers found, ensure that only one handler is marked as the default: " + strNames)
	}

	return defaults[0], nil
}

// IsHandledDemuxFactory is a DemuxFactory that routes http.Request requests to a specific ApiHandler by delegating
// to the ApiHandler's IsHandler function.
type IsHandledDemuxFactory struct {
	DefaultHttpHandlerProviderImpl
}

var _ DemuxFactory = &IsHandledDemuxFactory{}

// Build performs ApiHandler selection based on IsHandler()
func (factory *IsHandledDemuxFactory) Build(handlers []ApiHandler) (DemuxHandler, error) {
	defaultApi, err := getDefault(handlers)

	if err != nil {
		return nil, err
	}

	return &DemuxHandlerImpl{
		Handler: http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			for _, handler := range handlers {
				if handler.IsHandler(request) {
					serveWithHandler(handler, writer, request)
					return
				}
			}

			serveUnmatched(defaultApi, factory, writer, request)
		}),
	}, nil
}

// DefaultApiHandler is implemented by ApiHandler's that can declare themselves the handler of unmatched requests.
type DefaultApiHandler interface {
	ApiHandler
	IsDefault() bool
}

// RedirectApiHandler is a DefaultApiHandler that redirects every request to a fixed location, e.g. "/" to the
// console app root.
type RedirectApiHandler struct {
	Location string
	options  map[interface{}]interface{}
}

var _ DefaultApiHandler = &RedirectApiHandler{}

func (handler *RedirectApiHandler) IsDefault() bool {
	return true
}

func (handler *RedirectApiHandler) Binding() string {
	return RedirectBinding
}

func (handler *RedirectApiHandler) Options() map[interface{}]interface{} {
	return handler.options
}

func (handler *RedirectApiHandler) RootPath() string {
	return "/"
}

func (handler *RedirectApiHandler) IsHandler(r *http.Request) bool {
	return r.URL.Path == "/"
}

func (handler *RedirectApiHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	http.Redirect(writer, request, handler.Location, http.StatusFound)
}

const RedirectBinding = "redirect"

// RedirectFactory builds RedirectApiHandler's from a "location" option.
type RedirectFactory struct{}

var _ ApiHandlerFactory = &RedirectFactory{}

func (factory *RedirectFactory) Binding() string {
	return RedirectBinding
}

func (factory *RedirectFactory) New(_ *ServerConfig, options map[interface{}]interface{}) (ApiHandler, error) {
	location, ok := options["location"].(string)
	if !ok || !strings.HasPrefix(location, "/") {
		return nil, errors.New("redirect option location is required and must be an absolute path")
	}
	return &RedirectApiHandler{Location: location, options: options}, nil
}

func (factory *RedirectFactory) Validate(config *InstanceConfig) error {
	for _, serverConfig := range config.ServerConfigs {
		for _, api := range serverConfig.APIs {
			if api.Binding() == RedirectBinding {
				if _, err := factory.New(serverConfig, api.Options()); err != nil {
					return fmt.Errorf("invalid redirect api for server [%s]: %v", serverConfig.Name, err)
				}
			}
		}
	}
	return nil
}
