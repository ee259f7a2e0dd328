package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goerror"
)

// maxJSONBodyBytes caps JSON payloads. Capture requests carrying a data URI
// stay under it for images up to the configured selfie limit.
const maxJSONBodyBytes = 8 << 20

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	// Request is the underlying http.Request.
	*http.Request

	w http.ResponseWriter
}

// NewRequest wraps r for handler tests.
func NewRequest(w http.ResponseWriter, r *http.Request) *Request {
	return &Request{Request: r, w: w}
}

// GetParam reads a path parameter from the request context (as stored by httprouter).
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetQuery returns the trimmed query value for key.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// FlowID returns the flow bound to this request by the flow middleware.
func (r *Request) FlowID() string {
	return FlowID(r.Context())
}

// SetCookie adds a Set-Cookie header to the pending response.
func (r *Request) SetCookie(c *http.Cookie) {
	if r.w != nil {
		http.SetCookie(r.w, c)
	}
}

// IsMultipart reports whether the body is multipart/form-data.
func (r *Request) IsMultipart() bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// DecodeBody decodes the JSON body into dst. An empty body leaves dst as is.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}

// StreamSingleFile returns the first multipart part whose form name is name,
// together with its declared content type. Preceding parts are discarded.
func (r *Request) StreamSingleFile(name string) (io.ReadCloser, string, error) {
	if !r.IsMultipart() {
		return nil, "", goerror.NewInvalidFormat("Invalid request content-type")
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", goerror.NewInvalidFormat()
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", goerror.NewInvalidInput(nil, name, name+" file is required")
		}
		if err != nil {
			return nil, "", goerror.NewInvalidFormat()
		}

		if part.FormName() == name {
			return part, part.Header.Get("Content-Type"), nil
		}

		if err := drain(part); err != nil {
			return nil, "", goerror.NewInvalidFormat(err.Error())
		}
	}
}

func drain(part *multipart.Part) error {
	_, copyErr := io.Copy(io.Discard, part)
	return errors.Join(copyErr, part.Close())
}
