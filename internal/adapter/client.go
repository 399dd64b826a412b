package adapter

import (
	"context"
	"net/http"
	"net/url"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

const contentTypeJSON = "application/json"

var _ interfaces.Completer = (*Client)(nil)

// Client calls a remote OpenAI-compatible chat completion endpoint.
// Every Create is a single attempt: no retries and no backoff.
type Client struct {
	cli *cliex.HTTP
	cfg Config
	url string
	log logze.Logger
}

// New creates a client, it fails with *ConfigError when no API key is configured.
func New(cfg Config) (*Client, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, err
	}

	requestURL, err := BuildURL(cfg.Endpoint, cfg.APIVersion)
	if err != nil {
		return nil, err
	}

	cli, err := cliex.NewWithConfig(cliex.Config{
		BaseURL:        baseURL(requestURL),
		UserAgent:      cfg.UserAgent,
		ProxyAddress:   cfg.ProxyURL,
		RequestTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}
	cli.C().SetAuthToken(cfg.APIKey).SetRetryCount(0)

	return &Client{
		cli: cli,
		cfg: cfg,
		url: requestURL,
		log: logze.With("component", "adapter", "model", cfg.Model),
	}, nil
}

// Model returns the default model of the client.
func (c *Client) Model() string {
	return c.cfg.Model
}

// URL returns the full request URL including the api-version parameter.
func (c *Client) URL() string {
	return c.url
}

// Create performs one chat completion call and converts the result into the canonical shape.
// Failures are returned as *RequestError.
func (c *Client) Create(ctx context.Context, req model.CompletionRequest) (*model.CompletionResponse, error) {
	modelToUse := req.ModelOr(c.cfg.Model)

	body, err := json.Marshal(buildPayload(req, modelToUse))
	if err != nil {
		return nil, malformedError("cannot encode request", err)
	}

	resp, err := c.cli.C().R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeJSON).
		SetHeader("Accept", contentTypeJSON).
		SetBody(body).
		Post(c.url)

	if resp != nil && resp.StatusCode() != 0 && !isSuccess(resp.StatusCode()) {
		reqErr := remoteError(resp.StatusCode(), resp.Body())
		c.log.Warn("completion endpoint returned error", "status", reqErr.StatusCode, "error", reqErr.Message)
		return nil, reqErr
	}
	if err != nil {
		c.log.Err(err, "completion request failed")
		return nil, transportError(err)
	}

	var respBody chatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &respBody); err != nil {
		return nil, malformedError("cannot decode response body", err)
	}

	return convertResponse(respBody, modelToUse)
}

func buildPayload(req model.CompletionRequest, modelToUse string) chatCompletionRequest {
	messages := make([]message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, message{Role: string(m.Role), Content: m.Content})
	}
	return chatCompletionRequest{
		Messages:            messages,
		MaxCompletionTokens: req.GetMaxTokens(),
		Temperature:         req.GetTemperature(),
		TopP:                req.GetTopP(),
		FrequencyPenalty:    req.GetFrequencyPenalty(),
		PresencePenalty:     req.GetPresencePenalty(),
		Model:               modelToUse,
	}
}

// convertResponse is a structural copy of the endpoint response into the canonical shape.
func convertResponse(r chatCompletionResponse, requestedModel string) (*model.CompletionResponse, error) {
	if len(r.Choices) == 0 {
		return nil, malformedError("response did not include choices", nil)
	}

	out := &model.CompletionResponse{
		ID:      r.ID,
		Object:  model.ObjectChatCompletion,
		Created: r.Created,
		Model:   lang.Check(r.Model, requestedModel),
		Choices: make([]model.Choice, 0, len(r.Choices)),
	}

	if r.Usage != nil {
		out.Usage = model.Usage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		}
	}
	if !out.Usage.IsValid() {
		return nil, malformedError("response reported negative token usage", nil)
	}

	for _, ch := range r.Choices {
		out.Choices = append(out.Choices, model.Choice{
			Index: ch.Index,
			Message: model.ChatMessage{
				Role:    model.Role(ch.Message.Role),
				Content: ch.Message.Content,
			},
			FinishReason: finishReason(ch.FinishReason),
		})
	}

	return out, nil
}

func finishReason(v *string) string {
	if v == nil {
		return model.FinishReasonStop
	}
	return *v
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func baseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
