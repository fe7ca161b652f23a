package blockchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrNoTransactions is returned when the wallet has no history
	ErrNoTransactions = errors.New("no transactions found")
	// ErrAPIStatus is returned when the API answers with a non-OK status
	ErrAPIStatus = errors.New("etherscan API error")
)

const noTransactionsMessage = "No transactions found"

// EtherscanClient reads wallet history from the Etherscan v2 txlist endpoint
type EtherscanClient struct {
	httpClient *http.Client
	config     *config.EtherscanConfig
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// NewEtherscanClient creates a new Etherscan history provider
func NewEtherscanClient(cfg *config.EtherscanConfig, logger *logger.Logger) *EtherscanClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &EtherscanClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger.WithComponent("etherscan-client"),
	}
}

var _ repository.TransactionHistoryProvider = (*EtherscanClient)(nil)

// Name identifies the provider
func (c *EtherscanClient) Name() string {
	return "etherscan"
}

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// GetTransactions fetches the wallet's most recent transactions, newest first
func (c *EtherscanClient) GetTransactions(ctx context.Context, address string, limit int) ([]entity.TransactionRecord, error) {
	if limit <= 0 {
		limit = c.config.TxLimit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.txListURL(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.logger.Debug("Fetching transaction list", zap.String("address", address), zap.Int("limit", limit))

	var resp txListResponse
	if err := doJSON(c.httpClient, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if resp.Status != "1" {
		if resp.Message == noTransactionsMessage {
			return nil, ErrNoTransactions
		}
		var detail string
		_ = json.Unmarshal(resp.Result, &detail)
		return nil, fmt.Errorf("%w: %s - %s", ErrAPIStatus, resp.Message, detail)
	}

	var raws []RawTransaction
	if err := json.Unmarshal(resp.Result, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse transaction list: %w", err)
	}
	if len(raws) > limit {
		raws = raws[:limit]
	}

	records, err := NormalizeAll(raws)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize transactions: %w", err)
	}

	c.logger.Info("Fetched transactions", zap.String("address", address), zap.Int("count", len(records)))
	return records, nil
}

func (c *EtherscanClient) txListURL(address string) string {
	q := url.Values{}
	q.Set("chainid", strconv.Itoa(c.config.ChainID))
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("sort", "desc")
	q.Set("apikey", c.config.APIKey)
	return c.config.BaseURL + "?" + q.Encode()
}
