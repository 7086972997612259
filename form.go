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
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"sort"
	"strings"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

// DefaultUploadSizeThreshold is the size above which a multipart item is written to a temporary file
// instead of being held in memory.
const DefaultUploadSizeThreshold int64 = 256000

// FormItem is one part of a multipart/form-data body, either a plain form field or a file upload.
type FormItem struct {
	FieldName   string
	FileName    string
	ContentType string
	Header      textproto.MIMEHeader

	formField  bool
	size       int64
	data       []byte
	tempFile   string
	fileHeader *multipart.FileHeader
}

// IsFormField returns true for plain form fields and false for file uploads.
func (item *FormItem) IsFormField() bool {
	return item.formField
}

func (item *FormItem) Size() int64 {
	return item.size
}

// InMemory returns false if the item content is held outside the item, either in a temporary file or in
// the multipart form of the request.
func (item *FormItem) InMemory() bool {
	return item.tempFile == "" && item.fileHeader == nil
}

// Open returns a reader over the item content.
func (item *FormItem) Open() (io.ReadCloser, error) {
	if item.fileHeader != nil {
		return item.fileHeader.Open()
	}
	if item.InMemory() {
		return io.NopCloser(bytes.NewReader(item.data)), nil
	}
	return os.Open(item.tempFile)
}

// Bytes returns the item content.
func (item *FormItem) Bytes() ([]byte, error) {
	if item.fileHeader != nil {
		file, err := item.fileHeader.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		return io.ReadAll(file)
	}
	if item.InMemory() {
		return item.data, nil
	}
	return os.ReadFile(item.tempFile)
}

// String returns the item content as a string, or "" if a spilled item can no longer be read.
func (item *FormItem) String() string {
	content, err := item.Bytes()
	if err != nil {
		pfxlog.Logger().WithError(err).WithField("field", item.FieldName).Warn("could not read form item")
		return ""
	}
	return string(content)
}

func (item *FormItem) remove() {
	if item.tempFile == "" {
		return
	}
	if err := os.Remove(item.tempFile); err != nil && !os.IsNotExist(err) {
		pfxlog.Logger().WithError(err).WithField("file", item.tempFile).Debug("could not remove form item temp file")
	}
}

// FormData is a parsed multipart/form-data body: field name to items in arrival order. It is not modified
// after parsing.
type FormData struct {
	items map[string][]*FormItem
}

func newFormData() *FormData {
	return &FormData{items: map[string][]*FormItem{}}
}

func (data *FormData) add(item *FormItem) {
	data.items[item.FieldName] = append(data.items[item.FieldName], item)
}

// Items returns all items for name in arrival order.
func (data *FormData) Items(name string) []*FormItem {
	if data == nil {
		return nil
	}
	return data.items[name]
}

// Names returns the sorted field names.
func (data *FormData) Names() []string {
	if data == nil {
		return nil
	}
	names := make([]string, 0, len(data.items))
	for name := range data.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value returns the first plain form field value for name. File uploads are skipped, so a name carrying
// only uploads has no value.
func (data *FormData) Value(name string) (string, bool) {
	for _, item := range data.Items(name) {
		if item.IsFormField() {
			return item.String(), true
		}
	}
	return "", false
}

// Values returns all plain form field values for name in arrival order.
func (data *FormData) Values(name string) []string {
	var values []string
	for _, item := range data.Items(name) {
		if item.IsFormField() {
			values = append(values, item.String())
		}
	}
	return values
}

// RemoveAll deletes the temporary files of all spilled items.
func (data *FormData) RemoveAll() {
	if data == nil {
		return
	}
	for _, items := range data.items {
		for _, item := range items {
			item.remove()
		}
	}
}

// IsMultipartContent returns true for POST requests with a multipart content type.
func IsMultipartContent(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	return strings.HasPrefix(contentType, "multipart/")
}

// ParseFormData reads the whole multipart body of r. Items larger than threshold are written to temporary
// files. On error an empty FormData is returned together with the error and no temporary files are left
// behind.
func ParseFormData(r *http.Request, threshold int64) (*FormData, error) {
	if threshold <= 0 {
		threshold = DefaultUploadSizeThreshold
	}

	data := newFormData()

	reader, err := r.MultipartReader()
	if err != nil {
		return data, errors.Wrap(err, "not a readable multipart body")
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			data.RemoveAll()
			return newFormData(), errors.Wrap(err, "malformed multipart body")
		}

		item, err := readFormItem(part, threshold)
		_ = part.Close()

		if err != nil {
			data.RemoveAll()
			return newFormData(), err
		}

		if item != nil {
			data.add(item)
		}
	}
}

func readFormItem(part *multipart.Part, threshold int64) (*FormItem, error) {
	name := part.FormName()
	if name == "" {
		return nil, nil
	}

	item := &FormItem{
		FieldName:   name,
		ContentType: part.Header.Get("Content-Type"),
		Header:      part.Header,
		formField:   true,
	}

	if _, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition")); err == nil {
		if fileName, ok := params["filename"]; ok {
			item.FileName = fileName
			item.formField = false
		}
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, part, threshold+1)
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "error reading multipart item [%s]", name)
	}

	if n <= threshold {
		item.data = buf.Bytes()
		item.size = n
		return item, nil
	}

	file, err := os.CreateTemp("", "webconsole-upload-*")
	if err != nil {
		return nil, errors.Wrap(err, "could not create temp file for multipart item")
	}
	item.tempFile = file.Name()

	written, err := io.Copy(file, io.MultiReader(&buf, part))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		item.remove()
		return nil, errors.Wrapf(err, "error spilling multipart item [%s]", name)
	}

	item.size = written
	return item, nil
}

// FormDataFromRequest returns the parsed multipart body of r, parsing it on first use. The result is cached
// in the request Attributes so the body is read at most once per request. Requests without Attributes are
// parsed through r.ParseMultipartForm and the result is kept in r.MultipartForm instead, in which case
// net/http removes any temporary files when the request completes. A malformed body yields an empty
// FormData. Returns nil for requests that are not multipart.
func FormDataFromRequest(r *http.Request) *FormData {
	if !IsMultipartContent(r) {
		return nil
	}

	attrs := AttributesFromRequest(r)
	if attrs == nil {
		return formDataFromMultipartForm(r, DefaultUploadSizeThreshold)
	}

	if data, ok := attrs.Get(AttrFileUpload).(*FormData); ok {
		return data
	}

	threshold := DefaultUploadSizeThreshold
	if val, ok := attrs.Get(AttrUploadThreshold).(int64); ok && val > 0 {
		threshold = val
	}

	data, err := ParseFormData(r, threshold)
	if err != nil {
		pfxlog.Logger().WithError(err).WithField("path", r.URL.Path).Warn("could not parse multipart request, continuing without parameters")
	}

	attrs.Set(AttrFileUpload, data)
	return data
}

// formDataFromMultipartForm builds a FormData from r.MultipartForm, parsing the body on first use only.
// Only the body is consulted, query parameters are not part of the result.
func formDataFromMultipartForm(r *http.Request, threshold int64) *FormData {
	data := newFormData()

	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(threshold); err != nil && r.MultipartForm == nil {
			pfxlog.Logger().WithError(err).WithField("path", r.URL.Path).Warn("could not parse multipart request, continuing without parameters")
			return data
		}
	}

	if r.MultipartForm == nil {
		return data
	}

	for name, values := range r.MultipartForm.Value {
		for _, value := range values {
			data.add(&FormItem{
				FieldName: name,
				formField: true,
				size:      int64(len(value)),
				data:      []byte(value),
			})
		}
	}

	for name, headers := range r.MultipartForm.File {
		for _, header := range headers {
			data.add(&FormItem{
				FieldName:   name,
				FileName:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Header:      header.Header,
				size:        header.Size,
				fileHeader:  header,
			})
		}
	}

	return data
}

// GetParameter returns the first value of the named request parameter. Multipart bodies are parsed once and
// only plain form fields are considered, other requests use the regular form values of net/http.
func GetParameter(r *http.Request, name string) (string, bool) {
	if !IsMultipartContent(r) {
		if err := r.ParseForm(); err != nil {
			pfxlog.Logger().WithError(err).WithField("path", r.URL.Path).Debug("could not parse form")
		}
		if values := r.Form[name]; len(values) > 0 {
			return values[0], true
		}
		return "", false
	}

	return FormDataFromRequest(r).Value(name)
}

// GetParameterValues returns all values of the named request parameter.
func GetParameterValues(r *http.Request, name string) []string {
	if !IsMultipartContent(r) {
		if err := r.ParseForm(); err != nil {
			pfxlog.Logger().WithError(err).WithField("path", r.URL.Path).Debug("could not parse form")
		}
		return r.Form[name]
	}

	return FormDataFromRequest(r).Values(name)
}
