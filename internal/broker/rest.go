package broker

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://trading.robinhood.com"

// RESTClient implements Client against the venue's signed REST API. Every
// request carries an ed25519 signature over apiKey+timestamp+path+method+body.
type RESTClient struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

// RESTOption configures RESTClient construction parameters.
type RESTOption func(*RESTClient)

// WithBaseURL overrides the production API host, mainly for tests.
func WithBaseURL(url string) RESTOption {
	return func(c *RESTClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout overrides the default 10s HTTP timeout.
func WithTimeout(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewRESTClient builds a live API client from the supplied credentials.
func NewRESTClient(creds Credentials, log zerolog.Logger, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		baseURL: defaultBaseURL,
		creds:   creds,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RESTClient) authHeaders(method, path, body string) map[string]string {
	timestamp := strconv.FormatInt(c.now().UTC().Unix(), 10)
	message := c.creds.APIKey + timestamp + path + method + body
	sig := ed25519.Sign(c.creds.PrivateKey, []byte(message))
	return map[string]string{
		"x-api-key":   c.creds.APIKey,
		"x-signature": base64.StdEncoding.EncodeToString(sig),
		"x-timestamp": timestamp,
	}
}

// request signs and issues one API call, decoding the JSON response into out.
// path must include any query string since it is part of the signed message.
func (c *RESTClient) request(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.authHeaders(method, path, string(body)) {
		req.Header.Set(k, v)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// The quotes endpoint has shipped several field layouts; bidAskEntry covers
// the ones seen in the wild and pickQuote normalizes them.
type bidAskEnvelope struct {
	Results    []bidAskEntry `json:"results"`
	BestBidAsk []bidAskEntry `json:"best_bid_ask"`
}

type bidAskEntry struct {
	Symbol       string `json:"symbol"`
	BidPrice     string `json:"bid_price"`
	AskPrice     string `json:"ask_price"`
	BidInclusive string `json:"bid_inclusive_of_sell_spread"`
	AskInclusive string `json:"ask_inclusive_of_buy_spread"`
	Price        string `json:"price"`
	Timestamp    string `json:"timestamp"`
}

func (e bidAskEntry) pickQuote() (Quote, bool) {
	bid, bidOK := parsePrice(e.BidPrice)
	ask, askOK := parsePrice(e.AskPrice)
	if !bidOK || !askOK {
		bid, bidOK = parsePrice(e.BidInclusive)
		ask, askOK = parsePrice(e.AskInclusive)
	}
	if !bidOK || !askOK {
		// Single-price payloads quote both sides at the same level.
		if p, ok := parsePrice(e.Price); ok {
			bid, ask = p, p
			bidOK, askOK = true, true
		}
	}
	if !bidOK || !askOK {
		return Quote{}, false
	}
	q := Quote{Bid: bid, Ask: ask}
	if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		q.Ts = ts
	}
	return q, true
}

func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// BestBidAsk fetches the current quote for one trading pair. A response with
// no parseable price maps to ErrUnavailable, not a parse error.
func (c *RESTClient) BestBidAsk(ctx context.Context, symbol string) (*Quote, error) {
	path := "/api/v1/crypto/marketdata/best_bid_ask/?symbol=" + symbol
	var env bidAskEnvelope
	if err := c.request(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}

	entries := env.Results
	if len(entries) == 0 {
		entries = env.BestBidAsk
	}
	for _, entry := range entries {
		if entry.Symbol != "" && entry.Symbol != symbol {
			continue
		}
		if q, ok := entry.pickQuote(); ok {
			if q.Ts.IsZero() {
				q.Ts = c.now()
			}
			return &q, nil
		}
	}
	return nil, ErrUnavailable
}

type accountEnvelope struct {
	BuyingPower string `json:"buying_power"`
	Results     []struct {
		BuyingPower string `json:"buying_power"`
	} `json:"results"`
}

// Account fetches the current buying power.
func (c *RESTClient) Account(ctx context.Context) (*Account, error) {
	var env accountEnvelope
	if err := c.request(ctx, http.MethodGet, "/api/v1/crypto/trading/accounts/", nil, &env); err != nil {
		return nil, err
	}
	raw := env.BuyingPower
	if raw == "" && len(env.Results) > 0 {
		raw = env.Results[0].BuyingPower
	}
	bp, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse buying_power %q: %w", raw, err)
	}
	return &Account{BuyingPower: bp}, nil
}

type holdingsEnvelope struct {
	Holdings []holdingEntry `json:"holdings"`
	Results  []holdingEntry `json:"results"`
}

type holdingEntry struct {
	AssetCode     string `json:"asset_code"`
	TotalQuantity string `json:"total_quantity"`
	Quantity      string `json:"quantity"`
	Tradable      string `json:"quantity_available_for_trading"`
}

func (e holdingEntry) quantity() float64 {
	for _, raw := range []string{e.TotalQuantity, e.Quantity, e.Tradable} {
		if raw == "" {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return 0
}

// Holdings fetches the tradable quantity of one asset. A missing holding is
// reported as quantity zero, not an error.
func (c *RESTClient) Holdings(ctx context.Context, assetCode string) (*Holding, error) {
	path := "/api/v1/crypto/trading/holdings/?asset_code=" + assetCode
	var env holdingsEnvelope
	if err := c.request(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	entries := env.Holdings
	if len(entries) == 0 {
		entries = env.Results
	}
	for _, entry := range entries {
		if entry.AssetCode == "" || entry.AssetCode == assetCode {
			return &Holding{AssetCode: assetCode, Quantity: entry.quantity()}, nil
		}
	}
	return &Holding{AssetCode: assetCode}, nil
}

type pairsEnvelope struct {
	TradingPairs []pairEntry `json:"trading_pairs"`
	Results      []pairEntry `json:"results"`
}

type pairEntry struct {
	Symbol string `json:"symbol"`
}

// TradingPairs lists the venue's supported pairs, optionally filtered.
func (c *RESTClient) TradingPairs(ctx context.Context, symbols ...string) ([]string, error) {
	path := "/api/v1/crypto/trading/trading_pairs/"
	if len(symbols) > 0 {
		path += "?"
		for i, s := range symbols {
			if i > 0 {
				path += "&"
			}
			path += "symbol=" + s
		}
	}
	var env pairsEnvelope
	if err := c.request(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	entries := env.TradingPairs
	if len(entries) == 0 {
		entries = env.Results
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Symbol != "" {
			out = append(out, entry.Symbol)
		}
	}
	return out, nil
}

type orderRequest struct {
	ClientOrderID string            `json:"client_order_id"`
	Side          string            `json:"side"`
	Type          string            `json:"type"`
	Symbol        string            `json:"symbol"`
	MarketConfig  map[string]string `json:"market_order_config"`
}

type orderResponse struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	AveragePrice  string `json:"average_price"`
	FilledAssetQt string `json:"filled_asset_quantity"`
}

// PlaceMarketOrder submits a market order for the given asset quantity.
func (c *RESTClient) PlaceMarketOrder(ctx context.Context, side, symbol, quantity string) (*OrderResult, error) {
	body, err := json.Marshal(orderRequest{
		ClientOrderID: uuid.NewString(),
		Side:          side,
		Type:          "market",
		Symbol:        symbol,
		MarketConfig:  map[string]string{"asset_quantity": quantity},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	var resp orderResponse
	if err := c.request(ctx, http.MethodPost, "/api/v1/crypto/trading/orders/", body, &resp); err != nil {
		return nil, err
	}

	result := &OrderResult{ID: resp.ID, State: resp.State}
	if v, ok := parsePrice(resp.AveragePrice); ok {
		result.ExecutedPrice = v
	}
	if v, err := strconv.ParseFloat(resp.FilledAssetQt, 64); err == nil && v > 0 {
		result.ExecutedQty = v
	}
	c.log.Info().Str("order_id", resp.ID).Str("side", side).Str("symbol", symbol).Str("qty", quantity).Msg("order submitted")
	return result, nil
}
