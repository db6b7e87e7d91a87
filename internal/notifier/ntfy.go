package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/egregors/hkdash/log"
)

type Noop struct{}

func (n Noop) Notify(_ context.Context, _, _ string) error {
	return nil
}

func NewNoop() Noop {
	return Noop{}
}

// Ntfy posts messages to an ntfy.sh topic URL.
type Ntfy struct {
	url    string
	tags   string
	client *http.Client
}

func NewNtfy(url string) *Ntfy {
	return &Ntfy{
		url:  url,
		tags: "house,notification",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *Ntfy) Notify(ctx context.Context, title, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Tags", n.tags)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy request failed with status: %d", resp.StatusCode)
	}

	log.Debg.Printf("sent ntfy notification: %s", message)

	return nil
}
