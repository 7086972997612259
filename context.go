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
	"net/http"
)

const (
	HandlerContextKey    = ContextKey("webconsole.ApiHandler.ContextKey")
	ServerContextKey     = ContextKey("webconsole.Server.ContextKey")
	AttributesContextKey = ContextKey("webconsole.Attributes.ContextKey")
	RequestIdContextKey  = ContextKey("webconsole.RequestId.ContextKey")
)

// Request attribute names. The host side (the Console) provides AttrAppRoot, AttrLabelMap, AttrPaths,
// AttrUploadThreshold and AttrRequestId, the form extractor caches parsed multipart bodies under
// AttrFileUpload.
const (
	AttrAppRoot         = "webconsole.appRoot"
	AttrLabelMap        = "webconsole.labelMap"
	AttrPaths           = "webconsole.paths"
	AttrUploadThreshold = "webconsole.uploadThreshold"
	AttrRequestId       = "webconsole.requestId"
	AttrFileUpload      = "webconsole.fileupload"
)

// Attributes is request scoped storage. It is created per request and is not safe for concurrent use,
// which matches the one goroutine per request model of net/http.
type Attributes struct {
	values map[string]interface{}
}

// NewAttributes creates an empty attribute store.
func NewAttributes() *Attributes {
	return &Attributes{values: map[string]interface{}{}}
}

func (attrs *Attributes) Get(name string) interface{} {
	if attrs == nil {
		return nil
	}
	return attrs.values[name]
}

func (attrs *Attributes) Set(name string, value interface{}) {
	attrs.values[name] = value
}

func (attrs *Attributes) Remove(name string) {
	delete(attrs.values, name)
}

// String returns the named attribute if it is a string, "" otherwise.
func (attrs *Attributes) String(name string) string {
	if val, ok := attrs.Get(name).(string); ok {
		return val
	}
	return ""
}

// LabelMap returns the navigation entries (plugin label to title) or nil if none are set.
func (attrs *Attributes) LabelMap() map[string]string {
	if val, ok := attrs.Get(AttrLabelMap).(map[string]string); ok {
		return val
	}
	return nil
}

// Paths returns the RequestPaths attribute, or paths derived from the request URL if none is set.
func (attrs *Attributes) Paths(r *http.Request) RequestPaths {
	if val, ok := attrs.Get(AttrPaths).(RequestPaths); ok {
		return val
	}
	return RequestPaths{PathInfo: r.URL.Path}
}

// WithAttributes returns a shallow copy of r carrying attrs.
func WithAttributes(r *http.Request, attrs *Attributes) *http.Request {
	ctx := context.WithValue(r.Context(), AttributesContextKey, attrs)
	return r.WithContext(ctx)
}

// AttributesFromRequest returns the request scoped Attributes or nil if the request did not pass through
// a Console.
func AttributesFromRequest(r *http.Request) *Attributes {
	if val := r.Context().Value(AttributesContextKey); val != nil {
		if attrs, ok := val.(*Attributes); ok {
			return attrs
		}
	}
	return nil
}

// HandlerFromRequestContext us a utility function to retrieve a ApiHandler reference, that the demux http.Handler
// deferred to, during downstream  http.Handler processing from the http.Request context.
func HandlerFromRequestContext(ctx context.Context) ApiHandler {
	if val := ctx.Value(HandlerContextKey); val != nil {
		if handler, ok := val.(ApiHandler); ok {
			return handler
		}
	}
	return nil
}

// ServerContextFromRequestContext is a utility function to retrieve a *ServerContext reference from the http.Request
// that provides access to configuration like BindPointConfig, ServerConfig, and InstanceConfig values.
func ServerContextFromRequestContext(ctx context.Context) *ServerContext {
	if val := ctx.Value(ServerContextKey); val != nil {
		if serverContext, ok := val.(*ServerContext); ok {
			return serverContext
		}
	}
	return nil
}

// RequestIdFromRequestContext returns the id assigned to the request by the Server or "" if there is none.
func RequestIdFromRequestContext(ctx context.Context) string {
	if val, ok := ctx.Value(RequestIdContextKey).(string); ok {
		return val
	}
	return ""
}
