package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Messenger sends plain text WhatsApp messages and returns the provider message ID.
type Messenger interface {
	SendText(ctx context.Context, phoneNumber, text string) (string, error)
}

// MockMessenger only logs outgoing messages.
type MockMessenger struct {
	Logger *zap.Logger
}

func (m MockMessenger) SendText(_ context.Context, phoneNumber, text string) (string, error) {
	m.Logger.Info("[MOCK WhatsApp] message", zap.String("to", phoneNumber), zap.String("text", text))
	return "mock_" + strings.TrimPrefix(phoneNumber, "+"), nil
}

const metaGraphURL = "https://graph.facebook.com/v18.0"

// MetaMessenger sends messages through the WhatsApp Cloud API.
type MetaMessenger struct {
	Token      string
	PhoneID    string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewMetaMessenger(token, phoneID string, logger *zap.Logger) *MetaMessenger {
	return &MetaMessenger{
		Token:      token,
		PhoneID:    phoneID,
		BaseURL:    metaGraphURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

type metaTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type metaResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (m *MetaMessenger) SendText(ctx context.Context, phoneNumber, text string) (string, error) {
	msg := metaTextMessage{MessagingProduct: "whatsapp", To: strings.TrimPrefix(phoneNumber, "+"), Type: "text"}
	msg.Text.Body = text
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", m.BaseURL, m.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out metaResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	var id string
	if len(out.Messages) > 0 {
		id = out.Messages[0].ID
	}
	m.Logger.Info("Message sent via Meta", zap.String("messageId", id))
	return id, nil
}

// NewMessenger selects the provider named by OTP_PROVIDER. An incomplete meta
// configuration falls back to the mock provider.
func NewMessenger(provider, token, phoneID string, logger *zap.Logger) Messenger {
	switch provider {
	case "meta":
		if token == "" || phoneID == "" {
			logger.Warn("META_WHATSAPP_TOKEN or META_WHATSAPP_PHONE_ID missing, using mock WhatsApp provider")
			return MockMessenger{Logger: logger}
		}
		return NewMetaMessenger(token, phoneID, logger)
	case "mock", "":
		return MockMessenger{Logger: logger}
	default:
		logger.Warn("Unknown OTP provider, using mock", zap.String("provider", provider))
		return MockMessenger{Logger: logger}
	}
}
