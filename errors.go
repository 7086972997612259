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

var (
	ErrNilPlugin      = errors.New("plugin must not be nil")
	ErrInvalidLabel   = errors.New("plugin label must be non-empty and must not contain '/'")
	ErrDuplicateLabel = errors.New("plugin label already registered")
)
