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
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

const spoolBufferSize = 2048

// SpoolOutcome describes what Spooler.TrySpool did with a request.
type SpoolOutcome int

const (
	// SpoolNoCapability means the plugin has no resource locator.
	SpoolNoCapability SpoolOutcome = iota
	// SpoolDeclined means the locator did not find a resource for the path.
	SpoolDeclined
	// SpoolLocatorFailed means the locator returned an error or panicked.
	SpoolLocatorFailed
	// SpoolOpenFailed means a resource was found but could not be opened. Nothing was written.
	SpoolOpenFailed
	// SpoolNotModified means a 304 was sent.
	SpoolNotModified
	// SpoolSent means the resource was streamed completely.
	SpoolSent
	// SpoolInterrupted means streaming failed after the response headers were committed.
	SpoolInterrupted
)

func (outcome SpoolOutcome) String() string {
	switch outcome {
	case SpoolNoCapability:
		return "no-capability"
	case SpoolDeclined:
		return "declined"
	case SpoolLocatorFailed:
		return "locator-failed"
	case SpoolOpenFailed:
		return "open-failed"
	case SpoolNotModified:
		return "not-modified"
	case SpoolSent:
		return "sent"
	case SpoolInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("unknown(%d)", int(outcome))
	}
}

// Handled returns true if the request must not fall through to normal page rendering.
func (outcome SpoolOutcome) Handled() bool {
	switch outcome {
	case SpoolOpenFailed, SpoolNotModified, SpoolSent, SpoolInterrupted:
		return true
	default:
		return false
	}
}

// Spooler serves static resources of a single plugin with conditional GET support.
type Spooler struct {
	Locator      ResourceLocatorFunc
	MimeResolver MimeResolver
}

// NewSpooler creates a Spooler. A nil locator creates a Spooler that never handles a request, a nil resolver
// defaults to ExtensionMimeResolver.
func NewSpooler(locator ResourceLocatorFunc, resolver MimeResolver) *Spooler {
	if resolver == nil {
		resolver = ExtensionMimeResolver
	}
	return &Spooler{
		Locator:      locator,
		MimeResolver: resolver,
	}
}

// TrySpool serves the resource addressed by pathInfo if the locator provides one. The error is non-nil for
// SpoolLocatorFailed, SpoolOpenFailed and SpoolInterrupted. Callers treat SpoolLocatorFailed like
// SpoolDeclined after reporting it.
func (spooler *Spooler) TrySpool(w http.ResponseWriter, r *http.Request, pathInfo string) (SpoolOutcome, error) {
	if spooler == nil || spooler.Locator == nil {
		return SpoolNoCapability, nil
	}

	resource, err := spooler.locate(pathInfo)
	if err != nil {
		return SpoolLocatorFailed, err
	}

	if resource == nil {
		return SpoolDeclined, nil
	}

	stream, info, panicked, err := openResource(resource, pathInfo)
	if panicked {
		return SpoolLocatorFailed, err
	}
	if err != nil {
		return SpoolOpenFailed, errors.Wrapf(err, "could not open resource [%s]", pathInfo)
	}
	if stream == nil {
		return SpoolOpenFailed, errors.Errorf("resource [%s] opened without a stream", pathInfo)
	}
	defer closeResource(stream, pathInfo)

	if lastModified := info.LastModified; lastModified.Unix() > 0 {
		if ifModifiedSince, ok := IfModifiedSince(r); ok && ifModifiedSince.Unix() >= lastModified.Unix() {
			w.WriteHeader(http.StatusNotModified)
			return SpoolNotModified, nil
		}

		w.Header().Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}

	mimeType := spooler.MimeResolver.MimeType(pathInfo)
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	w.Header().Set("Content-Type", mimeType)

	if info.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.ContentLength, 10))
	}

	buf := make([]byte, spoolBufferSize)
	if _, err = io.CopyBuffer(w, stream, buf); err != nil {
		return SpoolInterrupted, errors.Wrapf(err, "error spooling resource [%s]", pathInfo)
	}

	return SpoolSent, nil
}

func (spooler *Spooler) locate(pathInfo string) (resource Resource, err error) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resource = nil
			err = fmt.Errorf("resource locator panicked for [%s]: %v", pathInfo, panicVal)
		}
	}()

	return spooler.Locator(pathInfo)
}

// openResource recovers from resources that panic on Open, such as a typed nil returned by the locator.
// Those are reported like a failing locator so the page still renders.
func openResource(resource Resource, pathInfo string) (stream io.ReadCloser, info ResourceInfo, panicked bool, err error) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			stream = nil
			panicked = true
			err = fmt.Errorf("resource for [%s] panicked on open: %v", pathInfo, panicVal)
		}
	}()

	stream, info, err = resource.Open()
	return stream, info, false, err
}

// IfModifiedSince parses the If-Modified-Since request header. The second return is false when the header
// is absent or cannot be parsed, in which case no condition applies.
func IfModifiedSince(r *http.Request) (time.Time, bool) {
	value := r.Header.Get("If-Modified-Since")
	if value == "" {
		return time.Time{}, false
	}

	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func closeResource(stream io.Closer, pathInfo string) {
	if err := stream.Close(); err != nil {
		pfxlog.Logger().WithError(err).WithField("path", pathInfo).Debug("error closing spooled resource")
	}
}
