// Package dataapi queries the positions subgraph for an owner's outcome
// token holdings. The indexer lags settlement by a few seconds, which is why
// post-fill refreshes are retried on a delay.
package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quantish/clobtrade/internal/domain"
)

// tokenDecimals is the outcome token fixed-point scale.
const tokenDecimals = 1e6

// Client is a GraphQL client for the positions subgraph. It satisfies
// domain.PositionReader.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
}

var _ domain.PositionReader = (*Client)(nil)

// NewClient creates a positions subgraph client.
//
// graphqlURL is the subgraph endpoint; apiKey may be empty for public
// endpoints.
func NewClient(graphqlURL, apiKey string) *Client {
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Positions returns the owner's non-zero outcome token positions.
func (c *Client) Positions(ctx context.Context, owner string) ([]domain.Position, error) {
	query := `
		query UserPositions($owner: String!) {
			userBalances(
				where: { user: $owner, balance_gt: 0 }
				orderBy: balance
				orderDirection: desc
			) {
				asset {
					id
				}
				balance
			}
		}
	`

	variables := map[string]any{
		"owner": strings.ToLower(owner),
	}

	respData, err := c.doQuery(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("dataapi: fetch positions: %w", err)
	}

	var result struct {
		UserBalances []struct {
			Asset struct {
				ID string `json:"id"`
			} `json:"asset"`
			Balance string `json:"balance"`
		} `json:"userBalances"`
	}

	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("dataapi: decode positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(result.UserBalances))
	for _, b := range result.UserBalances {
		raw, err := strconv.ParseFloat(b.Balance, 64)
		if err != nil {
			continue
		}
		positions = append(positions, domain.Position{
			TokenID: b.Asset.ID,
			Size:    raw / tokenDecimals,
		})
	}

	return positions, nil
}

// IndexedBlock returns the latest block number the subgraph has indexed,
// useful for monitoring indexing lag.
func (c *Client) IndexedBlock(ctx context.Context) (int64, error) {
	query := `
		query LatestBlock {
			_meta {
				block {
					number
				}
			}
		}
	`

	respData, err := c.doQuery(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("dataapi: fetch latest block: %w", err)
	}

	var result struct {
		Meta struct {
			Block struct {
				Number int64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}

	if err := json.Unmarshal(respData, &result); err != nil {
		return 0, fmt.Errorf("dataapi: decode latest block: %w", err)
	}

	return result.Meta.Block.Number, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doQuery executes a GraphQL query and returns the raw "data" field from the
// response.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}
