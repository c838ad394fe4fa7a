package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"animehub/pkg/models"
)

// MirrorPath is where a mirror serves its catalog snapshot.
const MirrorPath = "/anime.json"

// MirrorSource reads a JSON array of AnimeCanonical from another animehub
// instance (see cmd/mirror-server) or any static host.
type MirrorSource struct {
	BaseURL string
	Client  *http.Client
}

func NewMirrorSource(baseURL string, timeout time.Duration) *MirrorSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MirrorSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *MirrorSource) Name() string { return "mirror" }

func (s *MirrorSource) FetchAll(ctx context.Context) ([]models.AnimeCanonical, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+MirrorPath, nil)
	if err != nil {
		return nil, fmt.Errorf("mirror: build request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mirror: status %d: %s", resp.StatusCode, string(body))
	}

	var raw []models.AnimeCanonical
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("mirror: decode: %w", err)
	}

	out := make([]models.AnimeCanonical, 0, len(raw))
	for _, a := range raw {
		a.Title = strings.TrimSpace(a.Title)
		if a.ID == "" || a.Title == "" {
			continue
		}
		if a.SourceIDs == nil {
			a.SourceIDs = map[string]string{}
		}
		if _, ok := a.SourceIDs["mirror"]; !ok {
			a.SourceIDs["mirror"] = a.ID
		}
		out = append(out, a)
	}
	return out, nil
}
