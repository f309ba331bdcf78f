// Package webhook posts the vCon as JSON to every configured URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/vcon-dev/conserver"
)

const Name = "webhook"

var Defaults = conserver.StageOptions{
	"webhook-urls": []any{},
	"headers":      map[string]any{},
}

var ErrUnexpectedStatus = errors.New("webhook returned unexpected status", j.C("ERR_3f8a1c9e2d7b4056"))

func Module() conserver.LinkModule {
	return conserver.LinkModule{
		Defaults: Defaults,
		New: func(d conserver.Deps) (conserver.Link, error) {
			client := d.HTTPClient
			if client == nil {
				client = http.DefaultClient
			}

			return New(d.Records, client), nil
		},
	}
}

func New(records conserver.RecordStore, client *http.Client) *Link {
	return &Link{
		records: records,
		client:  client,
	}
}

type Link struct {
	records conserver.RecordStore
	client  *http.Client
}

var _ conserver.Link = (*Link)(nil)

// Run fails on the first URL that does not answer with a 2xx status. Receivers must tolerate the same vCon
// being posted more than once.
func (l *Link) Run(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
	v, err := l.records.Get(ctx, vconID)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	headers := opts.Map("headers")
	for _, url := range opts.Strings("webhook-urls") {
		err := l.post(ctx, url, body, headers)
		if err != nil {
			return "", errors.Wrap(err, "post vcon", j.MKV{"url": url, "link": linkName})
		}
	}

	return vconID, nil
}

func (l *Link) post(ctx context.Context, url string, body []byte, headers conserver.StageOptions) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	for k := range headers {
		req.Header.Set(k, headers.Str(k, ""))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrap(ErrUnexpectedStatus, "", j.MKV{"status": resp.StatusCode})
	}

	return nil
}
