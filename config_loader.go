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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a YAML configuration file into the map form accepted by the Parse functions.
func LoadConfigFile(path string) (map[interface{}]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read configuration file %s", path)
	}

	configMap, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse configuration file %s", path)
	}

	return configMap, nil
}

// ParseConfig decodes a YAML document. Nested maps are converted to map[interface{}]interface{}.
func ParseConfig(data []byte) (map[interface{}]interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc == nil {
		return map[interface{}]interface{}{}, nil
	}

	configMap, ok := normalizeConfigValue(doc).(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("configuration root must be a map, got %T", doc)
	}

	return configMap, nil
}

func normalizeConfigValue(val interface{}) interface{} {
	switch v := val.(type) {
	case map[string]interface{}:
		result := make(map[interface{}]interface{}, len(v))
		for key, child := range v {
			result[key] = normalizeConfigValue(child)
		}
		return result
	case map[interface{}]interface{}:
		result := make(map[interface{}]interface{}, len(v))
		for key, child := range v {
			result[fmt.Sprint(key)] = normalizeConfigValue(child)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, child := range v {
			result[i] = normalizeConfigValue(child)
		}
		return result
	default:
		return val
	}
}
