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

import "github.com/pkg/errors"

// ApiConfig selects an ApiHandlerFactory by binding name and carries the options handed to it. The console is
// configured as an ApiConfig with the ConsoleBinding binding whose options are parsed into a ConsoleConfig;
// other bindings define their own option keys.
type ApiConfig struct {
	binding string
	options map[interface{}]interface{}
}

// NewApiConfig creates an ApiConfig for a binding, e.g. when servers are assembled in code instead of parsed.
func NewApiConfig(binding string, options map[interface{}]interface{}) *ApiConfig {
	return &ApiConfig{
		binding: binding,
		options: options,
	}
}

// Binding returns the string that identifies the ApiHandlerFactory used to build the handler for this section.
func (api *ApiConfig) Binding() string {
	return api.binding
}

// Options returns the options associated with this ApiConfig binding. Never nil after Parse.
func (api *ApiConfig) Options() map[interface{}]interface{} {
	return api.options
}

// Parse the configuration map for an ApiConfig.
func (api *ApiConfig) Parse(apiConfigMap map[interface{}]interface{}) error {
	if bindingInterface, ok := apiConfigMap["binding"]; ok {
		if binding, ok := bindingInterface.(string); ok {
			api.binding = binding
		} else {
			return errors.New("binding must be a string")
		}
	} else {
		return errors.New("binding is required")
	}

	if optionsInterface, ok := apiConfigMap["options"]; ok {
		if optionsMap, ok := optionsInterface.(map[interface{}]interface{}); ok {
			api.options = optionsMap //leave to bindings to interpret further
		} else if optionsInterface != nil {
			return errors.New("options if declared must be a map")
		}
	}

	if api.options == nil {
		api.options = map[interface{}]interface{}{}
	}

	return nil
}

// Validate this configuration object.
func (api *ApiConfig) Validate() error {
	if api.Binding() == "" {
		return errors.New("binding must be specified")
	}

	return nil
}
