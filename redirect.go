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
	"net/http"
	"strings"
)

// RequestPaths splits a console request path the way redirects are resolved against it: ContextPath is
// the prefix the hosting server mounts the console under, ServletPath is the console app root and
// PathInfo the remainder starting with the plugin label.
type RequestPaths struct {
	ContextPath string
	ServletPath string
	PathInfo    string
}

// Full returns the complete request path.
func (paths RequestPaths) Full() string {
	return paths.ContextPath + paths.ServletPath + paths.PathInfo
}

// NormalizeRedirect turns a relative redirect target into an absolute path resolved against the directory
// of the current request. Targets starting with '/' are returned as is. A root level request yields
// "/target" rather than "//target", which clients would read as a protocol-relative URL to another host.
func NormalizeRedirect(paths RequestPaths, target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}

	base := paths.Full()
	if slash := strings.LastIndexByte(base, '/'); slash > -1 {
		base = base[:slash]
	} else if colon := strings.IndexByte(base, ':'); colon > -1 {
		base = base[colon+1:]
	} else {
		base = ""
	}

	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}

	// "//target" would be read as a host name
	if base == "/" {
		return base + target
	}

	return base + "/" + target
}

// SendRedirect sends a 302 to target after normalizing it against the paths of the request.
func SendRedirect(w http.ResponseWriter, r *http.Request, target string) {
	paths := AttributesFromRequest(r).Paths(r)
	http.Redirect(w, r, NormalizeRedirect(paths, target), http.StatusFound)
}
