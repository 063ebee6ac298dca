package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// ClientSecretsFile is the Google API credentials.json, read from the
	// config directory.
	ClientSecretsFile = "credentials.json"
	// TokenFile holds the Google access and refresh token.
	TokenFile = "google_token.json"
	// LocalhostAuthPort receives the OAuth redirect.
	LocalhostAuthPort = "6789"
)

// Google runs the installed-app OAuth flow for the calendar mirror.
type Google struct {
	dir    string
	log    *zap.Logger
	prompt io.Writer
}

// NewGoogle reads credentials from and stores tokens in dir. The
// authorization URL is written to prompt.
func NewGoogle(dir string, log *zap.Logger, prompt io.Writer) *Google {
	if log == nil {
		log = zap.NewNop()
	}
	if prompt == nil {
		prompt = os.Stdout
	}
	return &Google{dir: dir, log: log.Named("auth"), prompt: prompt}
}

// Config creates an oauth2.Config from the client secrets file, pinning
// a localhost redirect to LocalhostAuthPort.
func (g *Google) Config(scopes []string) (*oauth2.Config, error) {
	path := filepath.Join(g.dir, ClientSecretsFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", path, err)
	}
	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = g.redirectURL(config.RedirectURL)
	return config, nil
}

func (g *Google) redirectURL(configured string) string {
	if configured == "" || configured == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	parsed, err := url.Parse(configured)
	if err != nil {
		g.log.Warn("Warning: could not parse RedirectURL, using it as is", zap.String("url", configured), zap.Error(err))
		return configured
	}
	if parsed.Hostname() != "localhost" && parsed.Hostname() != "127.0.0.1" {
		g.log.Warn("Warning: RedirectURL is not a localhost callback", zap.String("url", configured))
		return configured
	}
	if parsed.Port() != LocalhostAuthPort {
		parsed.Host = net.JoinHostPort(parsed.Hostname(), LocalhostAuthPort)
	}
	return parsed.String()
}

// Client returns an authenticated client, running the browser flow when no
// token is stored yet. Refreshed tokens are written back.
func (g *Google) Client(ctx context.Context, scopes []string) (*http.Client, error) {
	config, err := g.Config(scopes)
	if err != nil {
		return nil, err
	}
	tokenPath := filepath.Join(g.dir, TokenFile)
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		g.log.Info("No existing token found, initiating web authorization flow", zap.String("path", tokenPath))
		tok, err = g.tokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}

	src := config.TokenSource(ctx, tok)
	current, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh google token: %w", err)
	}
	if current.AccessToken != tok.AccessToken || current.RefreshToken != tok.RefreshToken {
		g.log.Info("Token was refreshed, saving")
		if err := saveToken(tokenPath, current); err != nil {
			g.log.Warn("Warning: failed to save refreshed token", zap.Error(err))
		}
	}
	return oauth2.NewClient(ctx, src), nil
}

// Login forces a new browser authorization and stores the token.
func (g *Google) Login(ctx context.Context) error {
	config, err := g.Config(calendarScopes())
	if err != nil {
		return err
	}
	tok, err := g.tokenFromWeb(ctx, config)
	if err != nil {
		return err
	}
	return saveToken(filepath.Join(g.dir, TokenFile), tok)
}

func (g *Google) tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", ":"+LocalhostAuthPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()
	defer server.Close()

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(g.prompt, "Open the following URL in your browser to authorize eisen:\n%s\n", authURL)
	g.log.Info("Waiting for authorization code", zap.String("redirect", config.RedirectURL))

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out, please try again")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

func calendarScopes() []string {
	return []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope}
}

// CalendarService creates an authenticated Google Calendar service.
func (g *Google) CalendarService(ctx context.Context) (*calendar.Service, error) {
	client, err := g.Client(ctx, calendarScopes())
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google Calendar service: %w", err)
	}
	return srv, nil
}
