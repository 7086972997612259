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

/*
Package webconsole provides a pluggable web management console and the http.Server plumbing to host it from
configuration files.

Basics

A Console is an ApiHandler mounted below an app root (default /system/console). Plugins are registered in the
Console's PluginRegistry under a label, the first path segment after the app root. For each request the Console:

  - probes the plugin for a resource locator (an explicit ResourceLocatorFunc, a ResourceProvider or a
    ResourceProviderDelegate) and, if one answers, spools the resource with conditional GET support
  - otherwise renders the plugin page inside the console chrome: header, top navigation, content and footer
  - hands POST requests to plugins implementing PostHandler

Plugins read request parameters with GetParameter, which transparently handles multipart bodies and parses them
at most once per request, and redirect with SendRedirect, which resolves relative targets against the request
path.

Hosting

Each Instance parses a configuration section (default `web`) into ServerConfig's. Each ServerConfig can listen
on many interface/port combinations specified by an array of BindPointConfig's and host many ApiHandler's by
defining an array of ApiConfig's. Bindings are resolved through a Registry of ApiHandlerFactory's; the console is
registered as the `webconsole` binding and a root redirect as `redirect`.

When a ServerConfig hosts more than one API, a demux handler built by a DemuxFactory forwards each request to the
right ApiHandler. Servers serve https when an identity is configured and plain http otherwise.
*/
package webconsole
