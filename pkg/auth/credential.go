package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/harrisonrobin/eisen/pkg/persist"
)

var ErrNoCredential = errors.New("no sync credential configured")

// Credentials keeps the sync bearer token in its storage slot. The token is
// stored as plain oauth2.Token JSON; the slot's file mode (or the database
// file's) is the only protection it gets.
type Credentials struct {
	kv persist.KV
}

func NewCredentials(kv persist.KV) *Credentials {
	return &Credentials{kv: kv}
}

// Save stores a personal access token.
func (c *Credentials) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	b, err := json.Marshal(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	if err != nil {
		return err
	}
	if err := c.kv.Set(persist.KeyCredential, b); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Load returns ErrNoCredential when nothing was saved. A bare string left by
// an older client is accepted as the access token.
func (c *Credentials) Load() (*oauth2.Token, error) {
	b, ok, err := c.kv.Get(persist.KeyCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	if !ok || len(strings.TrimSpace(string(b))) == 0 {
		return nil, ErrNoCredential
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		var raw string
		if json.Unmarshal(b, &raw) != nil {
			raw = strings.TrimSpace(string(b))
		}
		tok = &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	}
	if tok.AccessToken == "" {
		return nil, ErrNoCredential
	}
	return tok, nil
}

func (c *Credentials) Clear() error {
	return c.kv.Delete(persist.KeyCredential)
}

// Configured reports whether a token is present, swallowing read errors.
func (c *Credentials) Configured() bool {
	_, err := c.Load()
	return err == nil
}
