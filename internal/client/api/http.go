package api

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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/common"
)

var _ Client = (*HTTPClient)(nil)

// ErrMalformedResponse reports a 2xx response whose body could not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

const (
	maxResponseBytes = 64 << 20
	maxErrorBytes    = 64 << 10
)

// HTTPClient implements Client against the backend REST API.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

// NewHTTPClient returns a client for baseURL. transport is normally a
// session.Guard; nil means http.DefaultTransport. A zero timeout leaves
// request deadlines to the caller's context.
func NewHTTPClient(baseURL string, transport http.RoundTripper, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &HTTPClient{
		baseURL: u,
		http:    &http.Client{Transport: transport},
		timeout: timeout,
	}, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "ok") {
		return fmt.Errorf("health status %q: %w", resp.Status, common.ErrUnavailable)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", reg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *HTTPClient) Profile(ctx context.Context) (*models.Profile, error) {
	var resp models.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPut, "/auth/profile", upd, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ListChats(ctx context.Context) ([]models.Chat, error) {
	var resp []models.Chat
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) GetChat(ctx context.Context, chatID int64) (*models.Chat, error) {
	var resp models.Chat
	if err := c.do(ctx, http.MethodGet, chatPath(chatID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) CreateChat(ctx context.Context, chat models.NewChat) (*models.Chat, error) {
	var resp models.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", chat, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) RenameChat(ctx context.Context, chatID int64, title string) (*models.Chat, error) {
	var resp models.Chat
	if err := c.do(ctx, http.MethodPatch, chatPath(chatID), models.ChatRename{Title: title}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) DeleteChat(ctx context.Context, chatID int64) error {
	return c.do(ctx, http.MethodDelete, chatPath(chatID), nil, nil)
}

func (c *HTTPClient) ListMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	var resp []models.Message
	if err := c.do(ctx, http.MethodGet, chatPath(chatID)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, chatID int64, msg models.NewMessage) (*models.Message, error) {
	var resp models.Message
	if err := c.do(ctx, http.MethodPost, chatPath(chatID)+"/messages", msg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Redact(ctx context.Context, file models.Upload, opts models.RedactOptions) (*models.DetectionResult, error) {
	body, contentType, err := redactForm(file, opts)
	if err != nil {
		return nil, fmt.Errorf("build redact form: %w", err)
	}

	var resp models.DetectionResult
	if err := c.send(ctx, http.MethodPost, "/redact", body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Entities(ctx context.Context) ([]string, error) {
	var resp struct {
		Entities []string `json:"entities"`
	}
	if err := c.do(ctx, http.MethodGet, "/entities", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func (c *HTTPClient) TaskLog(ctx context.Context, taskID string) (*models.TaskLog, error) {
	var resp models.TaskLog
	if err := c.do(ctx, http.MethodGet, "/logs/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func chatPath(chatID int64) string {
	return "/chats/" + strconv.FormatInt(chatID, 10)
}

func redactForm(file models.Upload, opts models.RedactOptions) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("confidence_threshold", strconv.FormatFloat(opts.ConfidenceThreshold, 'f', -1, 64)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("return_image", strconv.FormatBool(opts.ReturnImage)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// do sends in (JSON-encoded when non-nil) and decodes the response into out
// when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", method, path, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, body, contentType, out)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(common.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Detail: parseDetail(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrMalformedResponse, err)
	}
	return nil
}
