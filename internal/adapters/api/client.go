// Package api is the operator client for the session registry and the
// signalling store's HTTP surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) List(ctx context.Context, assetID domain.AssetID, status domain.SessionStatus) ([]domain.RemoteSession, error) {
	q := url.Values{}
	if assetID != "" {
		q.Set("assetId", string(assetID))
	}
	if status != "" {
		q.Set("status", string(status))
	}

	var body struct {
		Sessions []domain.RemoteSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions?"+q.Encode(), "", nil, &body); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return body.Sessions, nil
}

func (c *Client) Create(ctx context.Context, assetID domain.AssetID) (domain.RemoteSession, error) {
	req := map[string]string{"assetId": string(assetID)}
	var body struct {
		Session domain.RemoteSession `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions", "", req, &body); err != nil {
		return domain.RemoteSession{}, fmt.Errorf("create session: %w", err)
	}
	return body.Session, nil
}

func (c *Client) End(ctx context.Context, id domain.SessionID, token string) error {
	if err := c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(string(id)), token, nil, nil); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Signalling returns the transport view bound to one session, publishing
// as the operator role.
func (c *Client) Signalling(sess domain.RemoteSession) core.SignalTransport {
	return &sessionTransport{client: c, sess: sess}
}

type sessionTransport struct {
	client *Client
	sess   domain.RemoteSession
}

func (t *sessionTransport) Publish(ctx context.Context, typ domain.SignalType, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode signal data: %w", err)
	}
	req := map[string]any{
		"sessionId": t.sess.ID,
		"token":     t.sess.Token,
		"type":      typ,
		"data":      json.RawMessage(raw),
		"sender":    domain.RoleOperator,
	}
	if err := t.client.do(ctx, http.MethodPost, "/signalling", "", req, nil); err != nil {
		return fmt.Errorf("publish %s: %w", typ, err)
	}
	return nil
}

func (t *sessionTransport) FetchSince(ctx context.Context, since int64) ([]domain.SignalMessage, error) {
	q := url.Values{}
	q.Set("sessionId", string(t.sess.ID))
	q.Set("token", t.sess.Token)
	q.Set("since", fmt.Sprintf("%d", since))
	q.Set("role", string(domain.RoleOperator))

	var body struct {
		Messages []domain.SignalMessage `json:"messages"`
	}
	if err := t.client.do(ctx, http.MethodGet, "/signalling?"+q.Encode(), "", nil, &body); err != nil {
		return nil, fmt.Errorf("fetch signals: %w", err)
	}
	return body.Messages, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errFromStatus(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func errFromStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusNotFound:
		return domain.ErrSessionNotFound
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
