package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) IssueToken(ctx context.Context, address string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/token", "", map[string]any{
		"address": address,
	}, &out, "")
	return out, err
}

func (c *Client) Register(ctx context.Context, token, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/players", token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dashboard", token, nil, &out, "")
	return out, err
}

func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stats", "", nil, &out, "")
	return out, err
}

func (c *Client) Rates(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rates", "", nil, &out, "")
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) (map[string]any, error) {
	path := "/v1/leaderboard"
	if limit > 0 {
		path = fmt.Sprintf("/v1/leaderboard?limit=%d", limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, "", nil, &out, "")
	return out, err
}

func (c *Client) UnlockSlot(ctx context.Context, token string, index int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/slots/%d/unlock", index), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) BuyTierSlot(ctx context.Context, token string, index int, tier int32, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/slots/%d/tier", index), token, map[string]any{
		"tier": tier,
	}, &out, idem)
	return out, err
}

func (c *Client) CreateBusiness(ctx context.Context, token string, slotIndex int, typeIndex int32, amount int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/businesses", token, map[string]any{
		"slot_index":      slotIndex,
		"type_index":      typeIndex,
		"amount_lamports": amount,
	}, &out, idem)
	return out, err
}

func (c *Client) UpgradeBusiness(ctx context.Context, token string, slotIndex int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/businesses/%d/upgrade", slotIndex), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) SellBusiness(ctx context.Context, token string, slotIndex int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/businesses/%d/sell", slotIndex), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) UpdateEarnings(ctx context.Context, token, address string) (map[string]any, error) {
	body := map[string]any{}
	if address != "" {
		body["address"] = address
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/earnings/update", token, body, &out, "")
	return out, err
}

func (c *Client) ClaimEarnings(ctx context.Context, token, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/earnings/claim", token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) NFTDetail(ctx context.Context, token string, serial int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/nfts/%d", serial), token, nil, &out, "")
	return out, err
}

func (c *Client) TransferNFT(ctx context.Context, token string, serial int64, newOwner, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/nfts/%d/transfer", serial), token, map[string]any{
		"new_owner": newOwner,
	}, &out, idem)
	return out, err
}

func (c *Client) BurnNFT(ctx context.Context, token string, serial int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/nfts/%d/burn", serial), token, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) SyncOwner(ctx context.Context, token string, serial int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/nfts/%d/sync", serial), token, map[string]any{}, &out, idem)
	return out, err
}

// Do replays a queued offline command verbatim.
func (c *Client) Do(ctx context.Context, method, path, token string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, token, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
