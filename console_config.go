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
	"strings"

	"github.com/pkg/errors"
)

const (
	ConsoleBinding = "webconsole"
	DefaultAppRoot = "/system/console"
)

// ConsoleConfig is the configuration of a Console, parsed from the options of an ApiConfig with the
// ConsoleBinding binding.
//
//	options:
//	  appRoot: /system/console
//	  contextPath: ""
//	  defaultPlugin: notes
//	  branding:
//	    adminTitle: Management Console
//	    productName: Web Console
//	    productWeb: https://example.org
//	    vendorName: Example
//	  upload:
//	    sizeThreshold: 256000
type ConsoleConfig struct {
	AppRoot             string
	ContextPath         string
	DefaultPlugin       string
	Branding            Branding
	UploadSizeThreshold int64
}

// DefaultConsoleConfig returns a ConsoleConfig with all defaults applied.
func DefaultConsoleConfig() *ConsoleConfig {
	config := &ConsoleConfig{
		AppRoot:             DefaultAppRoot,
		UploadSizeThreshold: DefaultUploadSizeThreshold,
	}
	config.Branding.Default()
	return config
}

// Parse reads the console options. Keys that are absent keep their current values.
func (config *ConsoleConfig) Parse(options map[interface{}]interface{}) error {
	if options == nil {
		return nil
	}

	if err := parseString(options, "appRoot", &config.AppRoot); err != nil {
		return err
	}

	if err := parseString(options, "contextPath", &config.ContextPath); err != nil {
		return err
	}

	if err := parseString(options, "defaultPlugin", &config.DefaultPlugin); err != nil {
		return err
	}

	if brandingVal, ok := options["branding"]; ok {
		if brandingMap, ok := brandingVal.(map[interface{}]interface{}); ok {
			for key, target := range map[string]*string{
				"adminTitle":  &config.Branding.AdminTitle,
				"productName": &config.Branding.ProductName,
				"productWeb":  &config.Branding.ProductWeb,
				"vendorName":  &config.Branding.VendorName,
			} {
				if err := parseString(brandingMap, key, target); err != nil {
					return errors.Wrap(err, "error parsing branding")
				}
			}
		} else {
			return errors.New("branding must be a map")
		}
	}

	if uploadVal, ok := options["upload"]; ok {
		if uploadMap, ok := uploadVal.(map[interface{}]interface{}); ok {
			if thresholdVal, ok := uploadMap["sizeThreshold"]; ok {
				if threshold, ok := toInt64(thresholdVal); ok {
					config.UploadSizeThreshold = threshold
				} else {
					return fmt.Errorf("could not use value [%v] for upload.sizeThreshold, not an integer", thresholdVal)
				}
			}
		} else {
			return errors.New("upload must be a map")
		}
	}

	config.Branding.Default()

	return nil
}

// Validate checks paths and limits.
func (config *ConsoleConfig) Validate() error {
	if err := validateMountPath(config.AppRoot, false); err != nil {
		return errors.Wrapf(err, "invalid appRoot [%s]", config.AppRoot)
	}

	if err := validateMountPath(config.ContextPath, true); err != nil {
		return errors.Wrapf(err, "invalid contextPath [%s]", config.ContextPath)
	}

	if strings.Contains(config.DefaultPlugin, "/") {
		return errors.Errorf("invalid defaultPlugin [%s], must be a plugin label", config.DefaultPlugin)
	}

	if config.UploadSizeThreshold <= 0 {
		return errors.Errorf("value [%d] for upload.sizeThreshold too low, must be positive", config.UploadSizeThreshold)
	}

	return nil
}

// AppRootPath is the app root as seen by clients, i.e. including the context path.
func (config *ConsoleConfig) AppRootPath() string {
	return config.ContextPath + config.AppRoot
}

func validateMountPath(path string, allowEmpty bool) error {
	if path == "" {
		if allowEmpty {
			return nil
		}
		return errors.New("must not be empty")
	}

	if !strings.HasPrefix(path, "/") {
		return errors.New("must start with '/'")
	}

	if strings.HasSuffix(path, "/") {
		return errors.New("must not end with '/'")
	}

	return nil
}

func parseString(configMap map[interface{}]interface{}, key string, target *string) error {
	if val, ok := configMap[key]; ok {
		if str, ok := val.(string); ok {
			*target = str
		} else {
			return fmt.Errorf("could not use value for %s, not a string", key)
		}
	}
	return nil
}

func toInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}
