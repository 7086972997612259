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

import "net/http"

// ApiHandlerFactory builds ApiHandler instances for one binding. Factories are added to a Registry and looked
// up by the binding names used in ApiConfig sections.
type ApiHandlerFactory interface {
	Binding() string
	New(serverConfig *ServerConfig, options map[interface{}]interface{}) (ApiHandler, error)
	Validate(config *InstanceConfig) error
}

// ApiHandler is a http.Handler with the metadata a demux handler needs to route requests to it.
type ApiHandler interface {
	Binding() string
	Options() map[interface{}]interface{}
	RootPath() string
	IsHandler(r *http.Request) bool
	http.Handler
}
