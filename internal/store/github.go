package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/questlog/internal/tracker"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// GitHubConfig locates the tracker file inside a repository.
type GitHubConfig struct {
	BaseURL string // defaults to DefaultGitHubAPI
	Owner   string
	Repo    string
	Path    string
	Branch  string // optional; repository default branch when empty
	Token   string
}

// GitHub stores the document as a JSON file through the repository
// contents API. The file's blob SHA is the version token, so a PUT with a
// stale SHA is rejected by GitHub itself.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
}

// NewGitHub returns a contents API store. A nil client uses
// http.DefaultClient.
func NewGitHub(cfg GitHubConfig, client *http.Client) (*GitHub, error) {
	if cfg.Owner == "" || cfg.Repo == "" || cfg.Path == "" {
		return nil, errors.New("github store: owner, repo and path are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubAPI
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = http.DefaultClient
	}
	return &GitHub{cfg: cfg, client: client}, nil
}

type contentsFile struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putContentsResponse struct {
	Content contentsFile `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
}

// APIError is a non-success response from the contents API.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github %s: %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github %s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func (g *GitHub) contentsURL() string {
	segments := strings.Split(strings.Trim(g.cfg.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		g.cfg.BaseURL,
		url.PathEscape(g.cfg.Owner),
		url.PathEscape(g.cfg.Repo),
		strings.Join(segments, "/"))
}

func (g *GitHub) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// fetch returns the raw file and its SHA.
func (g *GitHub) fetch(ctx context.Context) ([]byte, string, error) {
	target := g.contentsURL()
	if g.cfg.Branch != "" {
		target += "?ref=" + url.QueryEscape(g.cfg.Branch)
	}
	req, err := g.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("github fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", readAPIError("fetch", resp)
	}

	var file contentsFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, "", fmt.Errorf("decode github contents: %w", err)
	}
	if file.Encoding != "" && file.Encoding != "base64" {
		return nil, "", fmt.Errorf("github fetch: unsupported encoding %q", file.Encoding)
	}
	// The API wraps base64 content at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("decode github content: %w", err)
	}
	return raw, file.SHA, nil
}

// put writes body, conditioned on sha when non-empty.
func (g *GitHub) put(ctx context.Context, body []byte, sha, message string) (string, error) {
	payload, err := json.Marshal(putContentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(body),
		SHA:     sha,
		Branch:  g.cfg.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("encode github request: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPut, g.contentsURL(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("github put: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// GitHub answers 409 for a stale sha and 422 when sha is missing
		// for an existing file.
		apiErr := readAPIError("put", resp)
		return "", fmt.Errorf("%w: %v", &ConflictError{Expected: sha}, apiErr)
	default:
		return "", readAPIError("put", resp)
	}

	var out putContentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode github put response: %w", err)
	}
	return out.Content.SHA, nil
}

func readAPIError(op string, resp *http.Response) error {
	var body apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)
	return &APIError{Op: op, StatusCode: resp.StatusCode, Message: body.Message}
}

// Load implements Store.
func (g *GitHub) Load(ctx context.Context) (*tracker.Document, string, error) {
	raw, sha, err := g.fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	doc, err := tracker.Unmarshal(raw)
	if err != nil {
		return nil, "", fmt.Errorf("github load: %w", err)
	}
	return doc, sha, nil
}

// Save implements Store.
func (g *GitHub) Save(ctx context.Context, w Write) (string, error) {
	if w.Version == "" {
		return "", &ConflictError{}
	}
	body, err := tracker.Marshal(w.Document)
	if err != nil {
		return "", fmt.Errorf("github save: %w", err)
	}
	return g.put(ctx, body, w.Version, w.Message)
}

// Init implements Initializer by creating the file when it is missing.
func (g *GitHub) Init(ctx context.Context, doc *tracker.Document, message string) (bool, error) {
	_, _, err := g.fetch(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	body, err := tracker.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("github init: %w", err)
	}
	if _, err := g.put(ctx, body, "", message); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// Someone created it between our fetch and put.
			return false, nil
		}
		return false, err
	}
	return true, nil
}
