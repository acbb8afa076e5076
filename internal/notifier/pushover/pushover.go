// Package pushover implements monitor.Notifier against the Pushover
// message API.
package pushover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

const sendTimeout = 30 * time.Second

// Config holds API credentials and the delivery endpoint.
type Config struct {
	Token string
	User  string
	// Endpoint overrides the API URL, for tests.
	Endpoint string
}

// Notifier posts notifications to Pushover.
type Notifier struct {
	cfg    Config
	client *http.Client
}

// New validates the credentials and returns a Notifier.
func New(cfg Config) (*Notifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("pushover token is required")
	}
	if cfg.User == "" {
		return nil, errors.New("pushover user key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: sendTimeout},
	}, nil
}

// Send delivers one notification. A non-200 response is an error; the
// response body is included for diagnosis but capped to keep logs sane.
func (n *Notifier) Send(ctx context.Context, msg monitor.Notification) error {
	form := url.Values{
		"token":   {n.cfg.Token},
		"user":    {n.cfg.User},
		"title":   {msg.Title},
		"message": {msg.Message},
	}
	if msg.Priority != 0 {
		form.Set("priority", strconv.Itoa(msg.Priority))
	}
	if msg.Sound != "" {
		form.Set("sound", msg.Sound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post pushover message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pushover returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
