package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr. One sender covers
// all configured URLs.
type ShoutrrrProvider struct {
	urls    []string
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewShoutrrrProvider creates and validates a shoutrrr push provider.
func NewShoutrrrProvider(urls []string, timeout time.Duration) (*ShoutrrrProvider, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one shoutrrr URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("invalid shoutrrr URL configuration: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrProvider{
		urls:    slices.Clone(urls),
		sender:  sender,
		timeout: timeout,
	}, nil
}

// Name implements Provider
func (s *ShoutrrrProvider) Name() string { return "shoutrrr" }

// Send implements Provider. The router handles its own timeouts.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	_ = ctx
	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	errs := s.sender.Send(n.Message, &params)
	for _, e := range errs {
		if e != nil {
			return fmt.Errorf("shoutrrr send failed: %w", e)
		}
	}
	return nil
}
