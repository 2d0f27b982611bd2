package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aethex-labs/aethex/internal/pkg/env"
)

const defaultAPIBaseURL = "https://discord.com/api/v10"

// Client is a minimal Discord REST client authenticated with the bot token.
type Client struct {
	BotToken   string
	APIBaseURL string

	HTTPClient *http.Client
}

// User is the subset of a Discord user object we consume.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
}

// DisplayName prefers the global display name over the legacy username.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.GlobalName); name != "" {
		return name
	}
	return u.Username
}

func NewClientFromEnv() *Client {
	return &Client{
		BotToken:   strings.TrimSpace(env.GetEnv("DISCORD_BOT_TOKEN", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("DISCORD_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetUser fetches a Discord user by snowflake id.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if strings.TrimSpace(c.BotToken) == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is not configured")
	}
	id := strings.TrimSpace(userID)
	if id == "" {
		return nil, errors.New("discord user id is required")
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + "/users/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("discord user request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out User
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("discord user response missing id")
	}
	return &out, nil
}
