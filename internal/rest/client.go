package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://chat.danktronics.org/api/v5"
	RequestTimeout   = 20 * time.Second
	ClientIdentifier = "chatapp-gateway (Go Library, 5)"

	maxErrorBody = 512
)

type Client struct {
	sugar      *zap.SugaredLogger
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for the HTTP API. A nil httpClient gets one with the
// default request timeout.
func New(sugar *zap.SugaredLogger, baseURL string, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: RequestTimeout}
	}

	return &Client{
		sugar:      sugar,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, method string, path string, authenticated bool, requestBody any, responseBody any) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("error encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	request.Header.Set("User-Agent", ClientIdentifier)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		request.Header.Set("Authorization", c.token)
	}

	c.sugar.Debugf("Sending %s %s", method, path)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("error reading response of %s %s: %w", method, path, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: response.StatusCode,
			Message:    errorMessage(body),
		}
	}

	if responseBody == nil || len(body) == 0 {
		return nil
	}
	err = json.Unmarshal(body, responseBody)
	if err != nil {
		return fmt.Errorf("error decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls a readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}

type gatewayResponse struct {
	URL string `json:"url"`
}

func (c *Client) GatewayURL(ctx context.Context) (string, error) {
	var response gatewayResponse
	err := c.doRequest(ctx, http.MethodGet, "/gateway/endpoint", false, nil, &response)
	if err != nil {
		return "", err
	}
	if response.URL == "" {
		return "", errors.New("gateway endpoint returned no url")
	}
	return response.URL, nil
}

type contentBody struct {
	Content string `json:"content"`
}

func (c *Client) CreateMessage(ctx context.Context, channelID snowflake.ID, content string) (*models.MessageData, error) {
	var message models.MessageData
	path := fmt.Sprintf("/channels/%d/messages", channelID)
	err := c.doRequest(ctx, http.MethodPost, path, true, contentBody{Content: content}, &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID, content string) (*models.MessageData, error) {
	var message models.MessageData
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	err := c.doRequest(ctx, http.MethodPatch, path, true, contentBody{Content: content}, &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	return c.doRequest(ctx, http.MethodDelete, path, true, nil, nil)
}

func (c *Client) Servers(ctx context.Context) ([]models.ServerData, error) {
	var servers []models.ServerData
	err := c.doRequest(ctx, http.MethodGet, "/users/@me/servers", true, nil, &servers)
	return servers, err
}

func (c *Client) Members(ctx context.Context, serverID snowflake.ID) ([]models.MemberData, error) {
	var members []models.MemberData
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/servers/%d/members", serverID), true, nil, &members)
	return members, err
}

func (c *Client) Messages(ctx context.Context, channelID snowflake.ID) ([]models.MessageData, error) {
	var messages []models.MessageData
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/channels/%d/messages", channelID), true, nil, &messages)
	return messages, err
}
