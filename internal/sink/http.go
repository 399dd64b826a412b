package sink

import (
	"context"
	"net/http"
	"strings"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

var _ interfaces.EventSink = (*HTTP)(nil)

// HTTP posts every event to a remote workflow tracking API
type HTTP struct {
	cli *cliex.HTTP
	url string
}

// NewHTTP creates a remote sink posting to {URL}/api/workflows/events.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, errm.New("tracking url is required for http sink")
	}
	base := strings.TrimRight(cfg.URL, "/")

	cli, err := cliex.NewWithConfig(cliex.Config{
		BaseURL:        base,
		RequestTimeout: lang.Check(cfg.Timeout, defaultHTTPTimeout),
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}
	cli.C().SetRetryCount(0)
	if cfg.APIKey != "" {
		cli.C().SetAuthToken(cfg.APIKey)
	}

	return &HTTP{
		cli: cli,
		url: base + eventsPath,
	}, nil
}

func (s *HTTP) Append(ctx context.Context, event model.WorkflowEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errm.Wrap(err, "failed to encode event")
	}

	resp, err := s.cli.C().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(s.url)
	if resp != nil && resp.StatusCode() >= http.StatusMultipleChoices {
		return errm.Errorf("tracking api returned status %d", resp.StatusCode())
	}
	if err != nil {
		return errm.Wrap(err, "failed to post event")
	}

	return nil
}
