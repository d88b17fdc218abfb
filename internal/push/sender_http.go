package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/config"
)

// HTTPSender talks to an FCM-compatible push endpoint.
type HTTPSender struct {
	client    *http.Client
	endpoint  string
	serverKey string
}

// NewHTTPSender returns nil when no server key is configured, which the
// Service treats as push-disabled.
func NewHTTPSender(cfg config.PushConfig) *HTTPSender {
	if cfg.ServerKey == "" {
		return nil
	}
	return &HTTPSender{
		client:    &http.Client{Timeout: cfg.Timeout},
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
	}
}

type pushRequest struct {
	To       string         `json:"to"`
	Priority string         `json:"priority"`
	Data     map[string]any `json:"data"`
}

func (s *HTTPSender) Send(ctx context.Context, token, kind string, payload map[string]any) error {
	data := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data["kind"] = kind

	body, err := json.Marshal(pushRequest{To: token, Priority: "high", Data: data})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrUnregistered
	default:
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
}
