// Package analyze asks an OpenAI compatible model to analyse every dialog of a vCon and stores the answer
// as an analysis entry.
package analyze

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/sashabaranov/go-openai"
	"k8s.io/utils/clock"

	"github.com/vcon-dev/conserver"
)

const (
	Name   = "analyze"
	vendor = "openai"

	analysisTypeTranscript = "transcript"
)

var Defaults = conserver.StageOptions{
	"model":         "gpt-4o-mini",
	"prompt":        "Summarize this conversation in a few sentences.",
	"analysis-type": "summary",
	"api-key":       "",
	"base-url":      "",
}

var ErrNoChoices = errors.New("model returned no choices", j.C("ERR_d2e9b0471c6a3f85"))

func Module() conserver.LinkModule {
	return conserver.LinkModule{
		Defaults: Defaults,
		New: func(d conserver.Deps) (conserver.Link, error) {
			return New(d.Records, d.Clock, d.HTTPClient), nil
		},
	}
}

func New(records conserver.RecordStore, clock clock.Clock, httpClient *http.Client) *Link {
	return &Link{
		records:    records,
		clock:      clock,
		httpClient: httpClient,
		clients:    make(map[string]*openai.Client),
	}
}

type Link struct {
	records    conserver.RecordStore
	clock      clock.Clock
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

var _ conserver.Link = (*Link)(nil)

// Run skips dialogs that already carry the analysis so a redelivered vCon does not call the model again.
// Dialogs are read from their transcript analysis when present and from the body of text dialogs
// otherwise.
func (l *Link) Run(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
	v, err := l.records.Get(ctx, vconID)
	if err != nil {
		return "", err
	}

	analysisType := opts.Str("analysis-type", "summary")
	client := l.client(opts)

	var changed bool
	for i, d := range v.Dialog {
		if v.HasAnalysis(analysisType, i) {
			continue
		}

		text := dialogText(v, i, d)
		if text == "" {
			continue
		}

		answer, err := complete(ctx, client, opts, text)
		if err != nil {
			return "", errors.Wrap(err, "analyze dialog", j.MKV{"dialog": i, "link": linkName})
		}

		err = v.AddAnalysis(analysisType, i, vendor, answer)
		if err != nil {
			return "", err
		}

		changed = true
	}

	if !changed {
		return vconID, nil
	}

	v.UpdatedAt = l.clock.Now()
	err = l.records.Put(ctx, v)
	if err != nil {
		return "", err
	}

	return vconID, nil
}

// client returns a client per api key and base url. Clients are kept for the lifetime of the link.
func (l *Link) client(opts conserver.StageOptions) *openai.Client {
	apiKey := opts.Str("api-key", "")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	baseURL := opts.Str("base-url", "")
	key := apiKey + "|" + baseURL

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.clients[key]; ok {
		return c
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	if l.httpClient != nil {
		config.HTTPClient = l.httpClient
	}

	c := openai.NewClientWithConfig(config)
	l.clients[key] = c
	return c
}

func complete(ctx context.Context, client *openai.Client, opts conserver.StageOptions, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: opts.Str("model", "gpt-4o-mini"),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: opts.Str("prompt", ""),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func dialogText(v *conserver.Vcon, i int, d conserver.Dialog) string {
	if a, ok := v.FindAnalysis(analysisTypeTranscript, i); ok {
		var s string
		if err := json.Unmarshal(a.Body, &s); err == nil {
			return s
		}

		return string(a.Body)
	}

	if d.Type == "text" && (d.Encoding == "" || d.Encoding == "none") {
		return d.Body
	}

	return ""
}
