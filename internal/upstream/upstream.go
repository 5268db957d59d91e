// Package upstream 归类第三方服务的失败，并提供统一的 JSON GET 调用。
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Error 表示第三方依赖的失败，Status 为对外暴露的 HTTP 状态码（404/429/502）。
type Error struct {
	Service string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Messages 为各类失败提供稳定的对外文案。
type Messages struct {
	NotFound    string
	RateLimited string
	Failed      string
}

// Classify 将上游状态码映射为对外状态码：404 保持，403/429 视为限流，其余为 502。
func Classify(service string, status int, msgs Messages, cause error) *Error {
	e := &Error{Service: service, Err: cause}
	switch status {
	case http.StatusNotFound:
		e.Status, e.Message = http.StatusNotFound, orDefault(msgs.NotFound, "resource not found")
	case http.StatusForbidden, http.StatusTooManyRequests:
		e.Status, e.Message = http.StatusTooManyRequests, orDefault(msgs.RateLimited, "rate limit exceeded, please try again later")
	default:
		e.Status, e.Message = http.StatusBadGateway, orDefault(msgs.Failed, "upstream request failed")
	}
	return e
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// StatusError 记录非 2xx 响应。
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// StatusOf returns the upstream HTTP status carried by err, or 0 for transport failures.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// NewHTTPClient 返回带超时的 http.Client。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// GetJSON 发起 GET 请求并将 2xx 响应解码到 out；非 2xx 返回 *StatusError。
func GetJSON(ctx context.Context, client *http.Client, rawURL string, query url.Values, header http.Header, out any) error {
	if query != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}
		u.RawQuery = query.Encode()
		rawURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// 调用方提供的头整体覆盖默认值。
	for k, vs := range header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
