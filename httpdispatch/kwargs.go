// Package httpdispatch implements the HTTP Dispatcher (component G): the
// uniform request-kwargs builder over seven body encodings, and the
// synchronous/asynchronous executors with keyed session reuse, mTLS, and
// timeout enforcement.
//
// No third-party HTTP client library is directly imported anywhere in the
// example corpus (go-retryablehttp in one example's go.mod is only an
// indirect, transitively-pulled dependency; fasthttp in another is never
// imported by that repo's own code) — this package is therefore built on
// net/http, the only grounded choice, as documented in DESIGN.md.
package httpdispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/apitest-engine/apitestd/entity"
)

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// FileRef is one entry of body["__files__"], the multipart upload
// descriptor consumed by the "files" body type.
type FileRef struct {
	Field string `json:"field"`
	Path  string `json:"path"`
	Mime  string `json:"mime,omitempty"`
}

// Request is the uniform dispatch record the kwargs builder produces.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	ContentType string // set by the builder when the body type implies one
	BodyReader  []byte
	IsMultipart bool
	Multipart   *multipartPayload
}

type multipartPayload struct {
	Files  []FileRef
	Fields map[string]any
}

// BodyEmpty reports whether a decoded JSON body value counts as "empty" per
// §4.G: {}, "", null, [].
func BodyEmpty(body any) bool {
	switch v := body.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// BuildRequest turns (method, rawURL, headers, params, body, bodyType) into
// one dispatch record.
func BuildRequest(method, rawURL string, headers map[string]string, params map[string]any, body any, bodyType entity.BodyType) (*Request, error) {
	req := &Request{
		Method:  strings.ToUpper(method),
		Headers: cloneHeaders(headers),
	}

	finalURL, rawParams, err := applyParams(rawURL, params)
	if err != nil {
		return nil, err
	}

	switch bodyType {
	case entity.BodyJSON:
		b, err := marshalJSON(body)
		if err != nil {
			return nil, err
		}
		req.BodyReader = b
		setDefaultContentType(req.Headers, "application/json")

	case entity.BodyParams:
		merged := mergeIntoParams(rawParams, body)
		finalURL = withQuery(finalURL, merged)

	case entity.BodyForm:
		form := stringifyFormValues(body)
		req.BodyReader = []byte(form.Encode())
		setDefaultContentType(req.Headers, "application/x-www-form-urlencoded")

	case entity.BodyText:
		if !BodyEmpty(body) {
			req.BodyReader = []byte(fmt.Sprintf("%v", body))
		}
		setDefaultContentType(req.Headers, "text/plain; charset=utf-8")

	case entity.BodyRaw:
		switch body.(type) {
		case map[string]any, []any:
			b, err := marshalJSON(body)
			if err != nil {
				return nil, err
			}
			req.BodyReader = b
			setDefaultContentType(req.Headers, "application/json")
		case string:
			req.BodyReader = []byte(body.(string))
		case nil:
			// empty body
		default:
			req.BodyReader = []byte(fmt.Sprintf("%v", body))
		}

	case entity.BodyFiles:
		mp, err := buildMultipart(body)
		if err != nil {
			return nil, err
		}
		req.IsMultipart = true
		req.Multipart = mp

	case entity.BodyData:
		switch b := body.(type) {
		case map[string]any:
			form := stringifyFormValues(b)
			req.BodyReader = []byte(form.Encode())
			setDefaultContentType(req.Headers, "application/x-www-form-urlencoded")
		case string:
			req.BodyReader = []byte(b)
		case nil:
			// no body
		default:
			req.BodyReader = []byte(fmt.Sprintf("%v", b))
		}

	default:
		switch b := body.(type) {
		case string:
			req.BodyReader = []byte(b)
		case nil:
			// no body
		default:
			encoded, err := marshalJSON(body)
			if err != nil {
				return nil, err
			}
			req.BodyReader = encoded
		}
	}

	req.URL = finalURL
	return req, nil
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func setDefaultContentType(headers map[string]string, ct string) {
	for k := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return
		}
	}
	headers["Content-Type"] = ct
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return jsonMarshal(v)
}

// applyParams drops "" / nil values and handles the distinguished "_raw"
// key: if it contains "=" it is appended to the URL as extra query (? or &
// as appropriate), else it is appended as a trailing path segment. Returns
// the (possibly modified) URL and the remaining cleaned params.
func applyParams(rawURL string, params map[string]any) (string, map[string]any, error) {
	cleaned := make(map[string]any, len(params))
	var raw string
	hasRaw := false
	for k, v := range params {
		if v == nil || v == "" {
			continue
		}
		if k == "_raw" {
			raw = fmt.Sprintf("%v", v)
			hasRaw = true
			continue
		}
		cleaned[k] = v
	}

	finalURL := rawURL
	if hasRaw && raw != "" {
		if strings.Contains(raw, "=") {
			if strings.Contains(finalURL, "?") {
				finalURL = finalURL + "&" + raw
			} else {
				finalURL = finalURL + "?" + raw
			}
		} else {
			finalURL = strings.TrimRight(finalURL, "/") + "/" + raw
		}
	}

	if len(cleaned) > 0 {
		finalURL = withQuery(finalURL, cleaned)
	}
	return finalURL, cleaned, nil
}

func withQuery(rawURL string, params map[string]any) string {
	if len(params) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	keys := sortedKeys(params)
	for _, k := range keys {
		q.Set(k, fmt.Sprintf("%v", params[k]))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func mergeIntoParams(existing map[string]any, body any) map[string]any {
	merged := make(map[string]any, len(existing))
	for k, v := range existing {
		merged[k] = v
	}
	if m, ok := body.(map[string]any); ok {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

func stringifyFormValues(body any) url.Values {
	form := url.Values{}
	if m, ok := body.(map[string]any); ok {
		for _, k := range sortedKeys(m) {
			form.Set(k, fmt.Sprintf("%v", m[k]))
		}
	}
	return form
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildMultipart(body any) (*multipartPayload, error) {
	m, ok := body.(map[string]any)
	if !ok {
		return &multipartPayload{}, nil
	}
	mp := &multipartPayload{Fields: map[string]any{}}
	if raw, ok := m["__files__"]; ok {
		if list, ok := raw.([]any); ok {
			for _, item := range list {
				if fm, ok := item.(map[string]any); ok {
					fr := FileRef{
						Field: fmt.Sprintf("%v", fm["field"]),
						Path:  fmt.Sprintf("%v", fm["path"]),
					}
					if mime, ok := fm["mime"]; ok {
						fr.Mime = fmt.Sprintf("%v", mime)
					}
					mp.Files = append(mp.Files, fr)
				}
			}
		}
	}
	for k, v := range m {
		if k == "__files__" {
			continue
		}
		mp.Fields[k] = v
	}
	return mp, nil
}

// EncodeMultipart writes files+fields as a multipart/form-data body,
// sniffing each file's Content-Type via mimetype when Mime is unset.
func EncodeMultipart(mp *multipartPayload, readFile func(path string) ([]byte, error)) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range mp.Files {
		data, err := readFile(f.Path)
		if err != nil {
			return nil, "", fmt.Errorf("httpdispatch: read file %s: %w", f.Path, err)
		}
		mimeType := f.Mime
		if mimeType == "" {
			mimeType = mimetype.Detect(data).String()
		}
		part, err := w.CreatePart(mapHeader(f.Field, f.Path, mimeType))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	for _, k := range sortedKeys(mp.Fields) {
		if err := w.WriteField(k, fmt.Sprintf("%v", mp.Fields[k])); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func mapHeader(field, path, mimeType string) map[string][]string {
	filename := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		filename = path[idx+1:]
	}
	return map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename)},
		"Content-Type":        {mimeType},
	}
}
