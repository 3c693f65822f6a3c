package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// apiClient is a thin client for the tagwatch-server HTTP API. It exchanges
// the API key for a bearer token on first use and reuses it for the rest of
// the invocation.
type apiClient struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
}

func newAPIClient() (*apiClient, error) {
	key := apiKey
	if key == "" {
		key = os.Getenv("TAGWATCH_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("API key required: pass --api-key or set TAGWATCH_API_KEY")
	}

	return &apiClient{
		baseURL: strings.TrimRight(serverURL, "/"),
		apiKey:  key,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// apiEnvelope mirrors the server's response envelope.
type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *apiClient) authenticate() error {
	body, _ := json.Marshal(map[string]string{"api_key": c.apiKey})
	resp, err := c.http.Post(c.baseURL+"/api/v1/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authentication failed (status %d): check the API key", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(envelope.Data, &token); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	c.token = token.AccessToken
	return nil
}

// do sends an authenticated request and decodes the data field into out.
// A nil out discards the response body.
func (c *apiClient) do(method, path string, body, out any) error {
	if c.token == "" {
		if err := c.authenticate(); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 {
		if envelope.Error != nil {
			return fmt.Errorf("%s", envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func (c *apiClient) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *apiClient) post(path string, body, out any) error {
	return c.do(http.MethodPost, path, body, out)
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
