package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"defi-risk-engine/internal/domain/entity"
	"defi-risk-engine/internal/domain/repository"
	"defi-risk-engine/internal/infrastructure/config"
	"defi-risk-engine/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoMarkets is returned when the GraphQL response carries no market
var ErrNoMarkets = errors.New("no lending markets returned")

// marketsQuery is formatted with the chain id
const marketsQuery = `query {
  markets(request: { chainIds: [%d] }) {
    reserves {
      underlyingToken { symbol name }
      size { usd }
      supplyInfo { apy { value } }
      borrowInfo { apy { value } }
    }
  }
}`

var hundred = decimal.NewFromInt(100)

// AaveClient reads lending reserves from the Aave v3 GraphQL API
type AaveClient struct {
	httpClient *http.Client
	config     *config.AaveConfig
	logger     *logger.Logger
}

// NewAaveClient creates a new Aave market data provider
func NewAaveClient(cfg *config.AaveConfig, logger *logger.Logger) *AaveClient {
	return &AaveClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logger.WithComponent("aave-client"),
	}
}

var _ repository.MarketDataProvider = (*AaveClient)(nil)

// Name identifies the provider
func (c *AaveClient) Name() string {
	return "aave"
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type apyValue struct {
	APY struct {
		Value decimal.Decimal `json:"value"`
	} `json:"apy"`
}

type reserveResponse struct {
	UnderlyingToken struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"underlyingToken"`
	Size struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"size"`
	SupplyInfo apyValue  `json:"supplyInfo"`
	BorrowInfo *apyValue `json:"borrowInfo"`
}

type marketsResponse struct {
	Data struct {
		Markets []struct {
			Reserves []reserveResponse `json:"reserves"`
		} `json:"markets"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GetReserves fetches every reserve of the first market on the configured chain
func (c *AaveClient) GetReserves(ctx context.Context) ([]entity.MarketReserve, error) {
	body, err := json.Marshal(graphQLRequest{Query: fmt.Sprintf(marketsQuery, c.config.ChainID)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GraphQLURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp marketsResponse
	if err := doJSON(c.httpClient, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}
	if len(resp.Data.Markets) == 0 {
		return nil, ErrNoMarkets
	}

	raw := resp.Data.Markets[0].Reserves
	reserves := make([]entity.MarketReserve, 0, len(raw))
	for _, r := range raw {
		reserve := entity.MarketReserve{
			Symbol:        r.UnderlyingToken.Symbol,
			Name:          r.UnderlyingToken.Name,
			MarketSizeUSD: r.Size.USD,
			SupplyAPYPct:  r.SupplyInfo.APY.Value.Mul(hundred),
			BorrowAPYPct:  decimal.Zero,
		}
		if r.BorrowInfo != nil {
			reserve.BorrowAPYPct = r.BorrowInfo.APY.Value.Mul(hundred)
			reserve.Borrowable = true
		}
		reserves = append(reserves, reserve)
	}

	c.logger.Info("Fetched lending markets", zap.Int("reserves", len(reserves)))
	return reserves, nil
}
