package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com"
	defaultAPIVersion   = "v21.0"
	defaultHTTPTimeout  = 10 * time.Second
	messagingProduct    = "whatsapp"
)

// ClientConfig holds the Cloud API credentials.
type ClientConfig struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	Timeout       time.Duration
}

// Client sends messages via the WhatsApp Cloud API.
type Client struct {
	accessToken   string
	phoneNumberID string
	apiVersion    string
	graphAPIBase  string
	httpClient    *http.Client
}

// NewClient creates a new Cloud API client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		apiVersion:    cfg.APIVersion,
		graphAPIBase:  strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	if c.apiVersion == "" {
		c.apiVersion = defaultAPIVersion
	}
	if c.graphAPIBase == "" {
		c.graphAPIBase = defaultGraphAPIBase
	}
	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	return c
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	c.graphAPIBase = strings.TrimRight(base, "/")
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             "text",
		Text:             &TextBody{Body: body},
	})
}

// SendInteractiveButtons sends a reply-button message.
func (c *Client) SendInteractiveButtons(ctx context.Context, to, body string, buttons []Button) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             "interactive",
		Interactive: &InteractiveMessage{
			Type:   "button",
			Body:   InteractiveBody{Text: body},
			Action: InteractiveAction{Buttons: buttons},
		},
	})
}

// SendMedia sends hosted media. Audio messages cannot carry a caption and
// only documents carry a filename.
func (c *Client) SendMedia(ctx context.Context, to, mediaType string, media MediaObject) (*SendResponse, error) {
	req := SendRequest{
		MessagingProduct: messagingProduct,
		RecipientType:    "individual",
		To:               to,
		Type:             mediaType,
	}
	switch mediaType {
	case "image":
		media.Filename = ""
		req.Image = &media
	case "audio":
		req.Audio = &MediaObject{Link: media.Link}
	case "video":
		media.Filename = ""
		req.Video = &media
	case "document":
		req.Document = &media
	default:
		return nil, fmt.Errorf("whatsapp: unsupported media type %q", mediaType)
	}
	return c.send(ctx, req)
}

// SendContacts shares one or more contact cards.
func (c *Client) SendContacts(ctx context.Context, to string, contacts []ContactMessage) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             "contacts",
		Contacts:         contacts,
	})
}

// SendLocation sends a map pin.
func (c *Client) SendLocation(ctx context.Context, to string, loc LocationMessage) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             "location",
		Location:         &loc,
	})
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		MessagingProduct: messagingProduct,
		Status:           "read",
		MessageID:        messageID,
	})
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.graphAPIBase, c.apiVersion, c.phoneNumberID)
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("whatsapp: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if sendResp.Error != nil {
		return &sendResp, fmt.Errorf("whatsapp: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return &sendResp, fmt.Errorf("whatsapp: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return &sendResp, nil
}
