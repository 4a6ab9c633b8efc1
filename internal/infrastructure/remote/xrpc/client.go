// Package xrpc HTTP-клиент репозитория записей: com.atproto.repo.* поверх XRPC.
package xrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/remote"
)

const (
	methodListRecords  = "com.atproto.repo.listRecords"
	methodCreateRecord = "com.atproto.repo.createRecord"
	methodPutRecord    = "com.atproto.repo.putRecord"
	methodDeleteRecord = "com.atproto.repo.deleteRecord"
)

type Config struct {
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// Client реализует remote.Repository. Адрес репозитория определяется resolver для каждого владельца.
type Client struct {
	client    *http.Client
	resolver  remote.Resolver
	log       *slog.Logger
	userAgent string

	mu    sync.RWMutex
	token string
}

var _ remote.Repository = (*Client)(nil)

func NewClient(resolver remote.Resolver, cfg *Config, log *slog.Logger) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "reposync/1.0"
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		resolver:  resolver,
		log:       log.With("component", "xrpc_client"),
		userAgent: cfg.UserAgent,
		token:     cfg.Token,
	}
}

// SetToken устанавливает токен доступа
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) ListRecords(ctx context.Context, owner, collection, cursor string, limit int) (*remote.Page, error) {
	q := url.Values{}
	q.Set("repo", owner)
	q.Set("collection", collection)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page remote.Page
	if err := c.call(ctx, owner, http.MethodGet, methodListRecords, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateRecord(ctx context.Context, owner, collection string, record remote.Record) (*remote.WriteResult, error) {
	body := map[string]any{
		"repo":       owner,
		"collection": collection,
		"record":     record,
	}

	var res remote.WriteResult
	if err := c.call(ctx, owner, http.MethodPost, methodCreateRecord, nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) PutRecord(ctx context.Context, owner, collection, rkey string, record remote.Record) (*remote.WriteResult, error) {
	body := map[string]any{
		"repo":       owner,
		"collection": collection,
		"rkey":       rkey,
		"record":     record,
	}

	var res remote.WriteResult
	if err := c.call(ctx, owner, http.MethodPost, methodPutRecord, nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteRecord(ctx context.Context, owner, collection, rkey string) error {
	body := map[string]any{
		"repo":       owner,
		"collection": collection,
		"rkey":       rkey,
	}
	return c.call(ctx, owner, http.MethodPost, methodDeleteRecord, nil, body, nil)
}

func (c *Client) call(ctx context.Context, owner, method, nsid string, query url.Values, body, result any) error {
	endpoint, err := c.resolver.ResolveEndpoint(ctx, owner)
	if err != nil {
		return fmt.Errorf("resolve endpoint for %s: %w", owner, err)
	}

	target := strings.TrimRight(endpoint, "/") + "/xrpc/" + nsid
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	c.log.Debug("sending request", "method", nsid, "owner", owner)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", nsid, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse %s response: %w", nsid, err)
		}
	}
	return nil
}

func apiError(status int, body []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &remote.APIError{Status: status, Code: errResp.Error, Message: msg}
}
