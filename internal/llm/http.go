package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
)

// maxErrorBody caps how much of a provider error body ends up in an error message.
const maxErrorBody = 512

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// postJSON sends body to url and returns the response body of a 2xx reply.
// Every failure is mapped onto the classification error taxonomy.
func postJSON(ctx context.Context, httpClient *http.Client, provider, url string, headers map[string]string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, transportError(provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(provider, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(provider, resp.StatusCode, respBody)
	}

	return respBody, nil
}

// statusError maps a non-2xx provider response onto the error taxonomy.
func statusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	cause := fmt.Errorf("%s API error (status %d): %s", provider, status, msg)

	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &common.TimeoutError{Err: cause}
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return &common.InvocationError{Provider: provider, Kind: common.KindRateLimit, StatusCode: status, Err: cause}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &common.InvocationError{Provider: provider, Kind: common.KindAuthentication, StatusCode: status, Err: cause}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return &common.InvocationError{Provider: provider, Kind: common.KindMalformedRequest, StatusCode: status, Err: cause}
	default:
		return &common.InvocationError{Provider: provider, Kind: common.KindService, StatusCode: status, Err: cause}
	}
}

// transportError maps a failure to reach the provider onto the error taxonomy.
func transportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &common.TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &common.TimeoutError{Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &common.InvocationError{Provider: provider, Kind: common.KindService, Err: fmt.Errorf("request failed: %w", err)}
}

func missingKeyError(provider string) error {
	return &common.ConfigurationError{
		Setting: "llm.api_key",
		Message: fmt.Sprintf("%s API key is not configured", provider),
	}
}
