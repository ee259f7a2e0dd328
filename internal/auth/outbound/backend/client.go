// Package backend talks to the remote authentication service that sends and
// verifies OTPs and stores portraits.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/shandysiswandi/selfieauth/internal/auth/entity"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultLoginPlatform = "MobileApp"
	maxResponseBytes     = 1 << 20
)

var ErrMalformedResponse = errors.New("backend: malformed response")

// Config points the client at the backend.
type Config struct {
	BaseURL            string
	SendOTPPath        string
	VerifyOTPPath      string
	UploadPortraitPath string
	// LoginPlatform is sent as login_platform on OTP verification.
	LoginPlatform string
	Timeout       time.Duration
}

// Client is a single-attempt HTTP client for the backend. It never retries.
type Client struct {
	cfg  Config
	http *http.Client
	ins  instrument.Instrumentation
}

// NewClient builds a Client. A nil transport uses http.DefaultTransport.
func NewClient(cfg Config, transport http.RoundTripper, ins instrument.Instrumentation) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.LoginPlatform == "" {
		cfg.LoginPlatform = defaultLoginPlatform
	}
	if cfg.SendOTPPath == "" {
		cfg.SendOTPPath = "/send-otp"
	}
	if cfg.VerifyOTPPath == "" {
		cfg.VerifyOTPPath = "/verify-otp"
	}
	if cfg.UploadPortraitPath == "" {
		cfg.UploadPortraitPath = "/upload-portrait"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		ins: ins,
	}
}

type sendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type verifyOTPRequest struct {
	PhoneNumber   string `json:"phoneNumber"`
	OTP           string `json:"otp"`
	LoginPlatform string `json:"login_platform"`
}

type response struct {
	Success  *bool  `json:"success"`
	Message  string `json:"message"`
	Token    string `json:"token"`
	ImageURL string `json:"imageUrl"`
}

func (c *Client) SendOTP(ctx context.Context, phoneNumber string) (*entity.BackendReply, error) {
	ctx, span := c.ins.Tracer("auth.outbound.backend").Start(ctx, "SendOTP")
	defer span.End()

	reply, err := c.postJSON(ctx, c.cfg.SendOTPPath, sendOTPRequest{PhoneNumber: phoneNumber})
	return reply, record(span, reply, err)
}

func (c *Client) VerifyOTP(ctx context.Context, phoneNumber, otp string) (*entity.BackendReply, error) {
	ctx, span := c.ins.Tracer("auth.outbound.backend").Start(ctx, "VerifyOTP")
	defer span.End()

	reply, err := c.postJSON(ctx, c.cfg.VerifyOTPPath, verifyOTPRequest{
		PhoneNumber:   phoneNumber,
		OTP:           otp,
		LoginPlatform: c.cfg.LoginPlatform,
	})
	return reply, record(span, reply, err)
}

func (c *Client) UploadPortrait(ctx context.Context, in entity.Portrait) (*entity.BackendReply, error) {
	ctx, span := c.ins.Tracer("auth.outbound.backend").Start(ctx, "UploadPortrait")
	defer span.End()

	body, contentType, err := portraitForm(in)
	if err != nil {
		return nil, record(span, nil, err)
	}

	req, err := c.newRequest(ctx, c.cfg.UploadPortraitPath, body, contentType)
	if err != nil {
		return nil, record(span, nil, err)
	}
	req.Header.Set("Authorization", "Bearer "+in.Token)

	reply, err := c.do(req)
	return reply, record(span, reply, err)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*entity.BackendReply, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, path, bytes.NewReader(b), "application/json")
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		req.Header.Set(instrument.CorrelationIDHeader, cID)
	}

	return req, nil
}

// do sends req and interprets the answer. Only transport and decoding
// failures are errors; a non-2xx status is a reply.
func (c *Client) do(req *http.Request) (*entity.BackendReply, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	reply := &entity.BackendReply{StatusCode: resp.StatusCode, Success: true}
	ok2xx := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices

	if len(bytes.TrimSpace(raw)) == 0 {
		return reply, nil
	}

	var body response
	if err := json.Unmarshal(raw, &body); err != nil {
		if ok2xx {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		// error pages are not always JSON; the status says enough
		return reply, nil
	}

	if body.Success != nil {
		reply.Success = *body.Success
	}
	reply.Message = body.Message
	reply.Token = body.Token
	reply.ImageURL = body.ImageURL

	return reply, nil
}

//nolint:gochecknoglobals // global for fast reuse
var portraitExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func portraitForm(in entity.Portrait) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="selfie`+portraitExt[in.Image.ContentType]+`"`)
	h.Set("Content-Type", in.Image.ContentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Image.Data); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("username", in.Username); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

func record(span trace.Span, reply *entity.BackendReply, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", reply.StatusCode),
		attribute.Bool("backend.success", reply.Success),
	)
	return nil
}
