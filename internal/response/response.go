// Package response holds the response value handed back by application
// handlers and the pipeline that morphs its content into a wire body.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/apimorph/internal/model"
	"github.com/vyrodovalexey/apimorph/internal/transform"
)

// jsonpPrefix marks a body produced by the JSONP formatter.
var jsonpPrefix = []byte("/**/")

// Response is an HTTP response whose body is produced from arbitrary
// content by Morpher.Morph. It is not safe for concurrent use.
type Response struct {
	status  int
	header  http.Header
	cookies []*http.Cookie
	body    []byte
	content any
	binding *transform.Binding
	err     error
	morphed bool
}

// New creates a response for content. A zero status means 200 OK; the
// header is copied.
func New(content any, status int, header http.Header) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	h := make(http.Header)
	for k, v := range header {
		h[k] = append([]string(nil), v...)
	}
	return &Response{status: status, header: h, content: content}
}

// FromExisting creates a fresh response with the content, status and headers
// of old.
func FromExisting(old *Response) *Response {
	return New(old.content, old.status, old.header)
}

// FromJSON creates a response from an already rendered JSON body, decoding
// it back into generic content. JSONP bodies are kept as a string.
func FromJSON(raw []byte, status int, header http.Header) (*Response, error) {
	if bytes.HasPrefix(raw, jsonpPrefix) {
		return New(string(raw), status, header), nil
	}

	var content any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, fmt.Errorf("failed to decode JSON response: %w", err)
		}
	}
	return New(content, status, header), nil
}

// Content returns the original content.
func (r *Response) Content() any { return r.content }

// SetContent replaces the original content.
func (r *Response) SetContent(content any) *Response {
	r.content = content
	return r
}

// Status returns the status code.
func (r *Response) Status() int { return r.status }

// SetStatus sets the status code.
func (r *Response) SetStatus(code int) *Response {
	r.status = code
	return r
}

// Header returns the response header map.
func (r *Response) Header() http.Header { return r.header }

// WithHeader sets a header value.
func (r *Response) WithHeader(key, value string) *Response {
	r.header.Set(key, value)
	return r
}

// SetCookie adds a cookie.
func (r *Response) SetCookie(c *http.Cookie) *Response {
	if c != nil {
		r.cookies = append(r.cookies, c)
	}
	return r
}

// Cookies returns the cookies in the order they were added.
func (r *Response) Cookies() []*http.Cookie { return r.cookies }

// Body returns the morphed body.
func (r *Response) Body() []byte { return r.body }

// Morphed reports whether Morph has completed on the response.
func (r *Response) Morphed() bool { return r.morphed }

// Binding returns the transformation binding, or nil.
func (r *Response) Binding() *transform.Binding { return r.binding }

// Bind attaches a transformation binding.
func (r *Response) Bind(b *transform.Binding) *Response {
	r.binding = b
	return r
}

// Err returns the error the response reports, if any.
func (r *Response) Err() error { return r.err }

// WithErr records the error the response reports.
func (r *Response) WithErr(err error) *Response {
	r.err = err
	return r
}

// AddMeta adds a metadata entry. A response without a binding gets one
// that only carries metadata.
func (r *Response) AddMeta(key string, value any) *Response {
	r.ensureBinding().AddMeta(key, value)
	return r
}

// SetMeta replaces all metadata.
func (r *Response) SetMeta(meta map[string]any) *Response {
	r.ensureBinding().SetMeta(meta)
	return r
}

// Meta returns the metadata, or nil when the response has no binding.
func (r *Response) Meta() *model.Meta {
	return r.binding.Meta()
}

func (r *Response) ensureBinding() *transform.Binding {
	if r.binding == nil {
		r.binding = transform.NewBinding(r.content)
	}
	return r.binding
}

// Write sends the status, headers, cookies and body to w.
func (r *Response) Write(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.header {
		dst[k] = append([]string(nil), v...)
	}
	for _, c := range r.cookies {
		http.SetCookie(w, c)
	}
	w.WriteHeader(r.status)

	if len(r.body) == 0 {
		return nil
	}
	_, err := w.Write(r.body)
	return err
}
