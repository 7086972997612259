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
	"io"
	"net/http"
)

// Plugin is a console page. A plugin supplies only its body content, the Console supplies the chrome,
// navigation, resource spooling and form handling around it.
type Plugin interface {
	// Label is the stable identifier of the plugin and the first path segment below the app root.
	Label() string
	// Title is the human readable name shown in the navigation and the page header.
	Title() string
	// RenderContent writes the body markup for the page. The chrome has already been written when it is
	// called and is closed after it returns.
	RenderContent(w io.Writer, r *http.Request) error
}

// ResourceProvider is implemented by plugins (or their delegates) that serve static resources. GetResource
// returns nil, nil when the path does not address a resource of the provider.
type ResourceProvider interface {
	GetResource(path string) (Resource, error)
}

// ResourceProviderDelegate is implemented by plugins that designate another object as their resource
// provider. A nil delegate means the plugin serves no resources.
type ResourceProviderDelegate interface {
	ResourceProvider() interface{}
}

// PostHandler is implemented by plugins that accept form submissions. Plugins that do not implement it
// answer POST requests with 405.
type PostHandler interface {
	HandlePost(w http.ResponseWriter, r *http.Request) error
}

// Activator is called when a plugin is added to a PluginRegistry.
type Activator interface {
	Activate(ctx *ActivationContext) error
}

// Deactivator is called when a plugin is removed from a PluginRegistry.
type Deactivator interface {
	Deactivate()
}

// ActivationContext is handed to an Activator and carries the console level settings a plugin may need
// when it is installed.
type ActivationContext struct {
	Branding Branding
	AppRoot  string
}
