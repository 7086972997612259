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
	"bytes"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultMimeType = "application/octet-stream"

// Resource is a handle to byte content from any origin. It is resolved per request and opened once by the
// Spooler, which always closes the returned stream.
type Resource interface {
	Open() (io.ReadCloser, ResourceInfo, error)
}

// ResourceInfo describes an opened Resource. A zero LastModified means the modification time is unknown,
// a negative ContentLength means the length is unknown.
type ResourceInfo struct {
	LastModified  time.Time
	ContentLength int64
}

// ResourceLocatorFunc maps a request path to a Resource. It returns nil, nil when the path does not
// address a resource. A Resource that panics on Open, a typed nil included, counts as a locator failure.
type ResourceLocatorFunc func(path string) (Resource, error)

// MimeResolver maps a request path to a MIME type.
type MimeResolver interface {
	MimeType(path string) string
}

// MimeResolverFunc adapts a function to MimeResolver.
type MimeResolverFunc func(path string) string

func (f MimeResolverFunc) MimeType(path string) string {
	return f(path)
}

// ExtensionMimeResolver resolves MIME types from the file extension of the path using the system MIME
// tables, falling back to DefaultMimeType.
var ExtensionMimeResolver MimeResolver = MimeResolverFunc(func(p string) string {
	if mimeType := mime.TypeByExtension(path.Ext(p)); mimeType != "" {
		return mimeType
	}
	return DefaultMimeType
})

type fsResource struct {
	fsys fs.FS
	name string
}

// NewFSResource returns a Resource for the named file of fsys.
func NewFSResource(fsys fs.FS, name string) Resource {
	return &fsResource{fsys: fsys, name: name}
}

func (res *fsResource) Open() (io.ReadCloser, ResourceInfo, error) {
	file, err := res.fsys.Open(res.name)
	if err != nil {
		return nil, ResourceInfo{}, err
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, ResourceInfo{}, err
	}

	if stat.IsDir() {
		_ = file.Close()
		return nil, ResourceInfo{}, errors.Errorf("resource [%s] is a directory", res.name)
	}

	return file, ResourceInfo{LastModified: stat.ModTime(), ContentLength: stat.Size()}, nil
}

type bytesResource struct {
	content      []byte
	lastModified time.Time
}

// NewBytesResource returns a Resource serving content from memory.
func NewBytesResource(content []byte, lastModified time.Time) Resource {
	return &bytesResource{content: content, lastModified: lastModified}
}

func (res *bytesResource) Open() (io.ReadCloser, ResourceInfo, error) {
	info := ResourceInfo{
		LastModified:  res.lastModified,
		ContentLength: int64(len(res.content)),
	}
	return io.NopCloser(bytes.NewReader(res.content)), info, nil
}

// FSLocator returns a ResourceLocatorFunc serving the files of fsys for request paths starting with
// prefix, e.g. FSLocator(resFS, "/mylabel/res/") maps "/mylabel/res/ui/x.css" to "ui/x.css". Paths
// outside the prefix, invalid paths, missing files and directories are not resources.
func FSLocator(fsys fs.FS, prefix string) ResourceLocatorFunc {
	return func(requestPath string) (Resource, error) {
		if !strings.HasPrefix(requestPath, prefix) {
			return nil, nil
		}

		name := strings.TrimPrefix(requestPath, prefix)
		if !fs.ValidPath(name) || name == "." {
			return nil, nil
		}

		stat, err := fs.Stat(fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}

		if stat.IsDir() {
			return nil, nil
		}

		return NewFSResource(fsys, name), nil
	}
}

// GetResource makes a ResourceLocatorFunc usable as a ResourceProvider, e.g. as the delegate returned by
// ResourceProviderDelegate.
func (f ResourceLocatorFunc) GetResource(path string) (Resource, error) {
	return f(path)
}
