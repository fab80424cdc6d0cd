package httpdispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apitest-engine/apitestd/entity"
)

func TestBodyEmpty(t *testing.T) {
	require.True(t, BodyEmpty(nil))
	require.True(t, BodyEmpty(""))
	require.True(t, BodyEmpty(map[string]any{}))
	require.True(t, BodyEmpty([]any{}))
	require.False(t, BodyEmpty("x"))
	require.False(t, BodyEmpty(map[string]any{"a": 1}))
}

func TestBuildRequestJSONBody(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, map[string]any{"a": 1}, entity.BodyJSON)
	require.NoError(t, err)
	require.Equal(t, "POST", req.Method)
	require.JSONEq(t, `{"a":1}`, string(req.BodyReader))
	require.Equal(t, "application/json", req.Headers["Content-Type"])
}

func TestBuildRequestJSONRespectsExplicitContentType(t *testing.T) {
	headers := map[string]string{"Content-Type": "application/vnd.custom+json"}
	req, err := BuildRequest("post", "http://example.com/x", headers, nil, map[string]any{"a": 1}, entity.BodyJSON)
	require.NoError(t, err)
	require.Equal(t, "application/vnd.custom+json", req.Headers["Content-Type"])
}

func TestBuildRequestParamsMergesBodyIntoQuery(t *testing.T) {
	req, err := BuildRequest("get", "http://example.com/x", nil, map[string]any{"a": "1"}, map[string]any{"b": "2"}, entity.BodyParams)
	require.NoError(t, err)
	require.Contains(t, req.URL, "a=1")
	require.Contains(t, req.URL, "b=2")
}

func TestBuildRequestFormEncodesBody(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, map[string]any{"a": "1"}, entity.BodyForm)
	require.NoError(t, err)
	require.Equal(t, "a=1", string(req.BodyReader))
	require.Equal(t, "application/x-www-form-urlencoded", req.Headers["Content-Type"])
}

func TestBuildRequestDataMapFormEncodesBody(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, map[string]any{"a": "1"}, entity.BodyData)
	require.NoError(t, err)
	require.Equal(t, "a=1", string(req.BodyReader))
	require.Equal(t, "application/x-www-form-urlencoded", req.Headers["Content-Type"])
}

func TestBuildRequestDataStringPassesThrough(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, "raw text", entity.BodyData)
	require.NoError(t, err)
	require.Equal(t, "raw text", string(req.BodyReader))
}

func TestBuildRequestTextBody(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, "hello", entity.BodyText)
	require.NoError(t, err)
	require.Equal(t, "hello", string(req.BodyReader))
	require.Equal(t, "text/plain; charset=utf-8", req.Headers["Content-Type"])
}

func TestBuildRequestTextEmptyBodyProducesNoBodyReader(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, "", entity.BodyText)
	require.NoError(t, err)
	require.Nil(t, req.BodyReader)
}

func TestBuildRequestRawMapEncodesAsJSON(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, map[string]any{"a": 1}, entity.BodyRaw)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(req.BodyReader))
}

func TestBuildRequestRawStringPassesThrough(t *testing.T) {
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, "<xml/>", entity.BodyRaw)
	require.NoError(t, err)
	require.Equal(t, "<xml/>", string(req.BodyReader))
}

func TestBuildRequestFilesMarksMultipart(t *testing.T) {
	body := map[string]any{
		"__files__": []any{
			map[string]any{"field": "upload", "path": "/tmp/a.txt", "mime": "text/plain"},
		},
		"note": "hi",
	}
	req, err := BuildRequest("post", "http://example.com/x", nil, nil, body, entity.BodyFiles)
	require.NoError(t, err)
	require.True(t, req.IsMultipart)
	require.Len(t, req.Multipart.Files, 1)
	require.Equal(t, "upload", req.Multipart.Files[0].Field)
	require.Equal(t, "hi", req.Multipart.Fields["note"])
}

func TestApplyParamsRawWithEqualsAppendsAsQuery(t *testing.T) {
	finalURL, cleaned, err := applyParams("http://example.com/x", map[string]any{"_raw": "foo=bar"})
	require.NoError(t, err)
	require.Equal(t, "http://example.com/x?foo=bar", finalURL)
	require.Empty(t, cleaned)
}

func TestApplyParamsRawWithoutEqualsAppendsAsPathSegment(t *testing.T) {
	finalURL, _, err := applyParams("http://example.com/x/", map[string]any{"_raw": "123"})
	require.NoError(t, err)
	require.Equal(t, "http://example.com/x/123", finalURL)
}

func TestApplyParamsDropsNilAndEmptyValues(t *testing.T) {
	_, cleaned, err := applyParams("http://example.com", map[string]any{"a": "", "b": nil, "c": "1"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"c": "1"}, cleaned)
}

func TestEncodeMultipartSniffsMimeWhenUnset(t *testing.T) {
	mp := &multipartPayload{
		Files: []FileRef{{Field: "f", Path: "report.txt"}},
	}
	readFile := func(path string) ([]byte, error) { return []byte("plain text content"), nil }

	body, contentType, err := EncodeMultipart(mp, readFile)
	require.NoError(t, err)
	require.Contains(t, contentType, "multipart/form-data")
	require.Contains(t, string(body), "report.txt")
}
