package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/model"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DefaultPath    = "eisenhower-tasks.json"
	DefaultBranch  = "main"
)

type GitHubConfig struct {
	Owner   string
	Repo    string
	Path    string
	Branch  string
	APIBase string
}

// GitHub keeps the snapshot as a single file in a repository, using the
// contents API.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
	clock  clock.Clock
	log    *zap.Logger
}

// NewGitHub builds a remote that authenticates with token as a bearer
// credential.
func NewGitHub(ctx context.Context, cfg GitHubConfig, token *oauth2.Token, clk clock.Clock, log *zap.Logger) *GitHub {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if clk == nil {
		clk = clock.System
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GitHub{
		cfg:    cfg,
		client: oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)),
		clock:  clk,
		log:    log.Named("github"),
	}
}

func (g *GitHub) Name() string { return "github" }

type contentFile struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

func (g *GitHub) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.cfg.APIBase,
		url.PathEscape(g.cfg.Owner), url.PathEscape(g.cfg.Repo), g.cfg.Path)
}

// get returns the file, or nil when the repository doesn't have it.
func (g *GitHub) get(ctx context.Context) (*contentFile, error) {
	u := g.contentsURL() + "?ref=" + url.QueryEscape(g.cfg.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := googleapi.CheckResponse(res); err != nil {
		return nil, err
	}
	var file contentFile
	if err := json.NewDecoder(res.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode contents response: %w", err)
	}
	return &file, nil
}

func (g *GitHub) Fetch(ctx context.Context) (*model.Snapshot, error) {
	file, err := g.get(ctx)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	if file == nil {
		g.log.Debug("no remote file yet", zap.String("path", g.cfg.Path))
		return nil, nil
	}
	// The API wraps base64 at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(file.Content), ""))
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: fmt.Errorf("failed to decode content: %w", err)}
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &TransportError{Op: "fetch", Err: fmt.Errorf("failed to parse snapshot: %w", err)}
	}
	snap.Data = snap.Data.Normalize()
	return &snap, nil
}

// Push writes snap, looking up the current blob sha first so an existing
// file is updated rather than rejected.
func (g *GitHub) Push(ctx context.Context, snap model.Snapshot) error {
	existing, err := g.get(ctx)
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	payload := putRequest{
		Message: "Update tasks - " + g.clock.Now().Format(time.RFC1123),
		Content: base64.StdEncoding.EncodeToString(body),
		Branch:  g.cfg.Branch,
	}
	if existing != nil {
		payload.SHA = existing.SHA
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.contentsURL(), bytes.NewReader(buf))
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	defer res.Body.Close()
	if err := googleapi.CheckResponse(res); err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	g.log.Debug("pushed snapshot", zap.Int("tasks", len(snap.Tasks)))
	return nil
}
