package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type tokenData struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// apiClient talks to a running api-server.
type apiClient struct {
	baseURL   string
	tokenPath string
	http      *http.Client
}

func (c *apiClient) do(ctx context.Context, method, path string, authed bool, payload, out any) error {
	var token string
	if authed {
		td, err := readToken(c.tokenPath)
		if err != nil {
			return err
		}
		token = td.Token
	}
	return doJSON(ctx, c.http, method, c.baseURL+path, token, payload, out)
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, endpoint, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.animehub-token.json"
	}
	return filepath.Join(home, ".animehub", "token.json")
}

func saveToken(path string, td tokenData) error {
	if td.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (tokenData, error) {
	var td tokenData
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return td, errors.New("not logged in: run `animehub remote login` first")
		}
		return td, err
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return td, fmt.Errorf("read token %s: %w", path, err)
	}
	td.Token = strings.TrimSpace(td.Token)
	if td.Token == "" {
		return td, errors.New("token empty, please login")
	}
	return td, nil
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func websocketURL(baseURL, path string, query url.Values) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme:   scheme,
		Host:     u.Host,
		Path:     path,
		RawQuery: query.Encode(),
	}).String(), nil
}

// localURL turns a listen address like ":8080" into a loopback URL.
func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
