package ebay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	ApiBaseUrl = "https://api.ebay.com"

	tokenPath     = "/identity/v1/oauth2/token"
	marketplaceID = "EBAY_US"

	// Tokens are refreshed this long before their reported expiry.
	tokenExpiryMargin = 5 * time.Minute
)

// Sandbox and production apps accept different scope spellings, so token
// generation tries these in order until one is granted.
var tokenScopes = []string{
	"https://api.ebay.com/oauth/api_scope/buy.browse",
	"buy.browse",
	"https://api.ebay.com/oauth/api_scope",
}

// TokenStore persists generated application tokens across restarts.
type TokenStore interface {
	GetEbayToken() (token string, expiresAt time.Time, err error)
	SetEbayToken(token string, expiresAt time.Time) error
}

type ClientOpts struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// StaticToken is a pre-generated OAuth token used when no client
	// credentials are configured, or when token generation fails.
	StaticToken string
	// TokenStore, when set, persists generated tokens so restarts don't
	// burn a token grant. Store failures are logged and ignored.
	TokenStore TokenStore
}

// Client talks to the eBay Browse API. It mints and caches an application
// OAuth token on demand.
type Client struct {
	httpClient   *resty.Client
	baseURL      string
	clientID     string
	clientSecret string
	staticToken  string
	tokenStore   TokenStore

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(opts ClientOpts) *Client {
	c := Client{
		baseURL:      ApiBaseUrl,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		staticToken:  opts.StaticToken,
		tokenStore:   opts.TokenStore,
	}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")

	return &c
}

func (c *Client) req(ctx context.Context, result any) (*resty.Request, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	request := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("X-EBAY-C-MARKETPLACE-ID", marketplaceID)

	if result != nil {
		request.SetResult(result)
	}

	return request, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// token returns a valid OAuth token, minting a new one when the cached
// token is missing or close to expiry. Falls back to the static token when
// no credentials are configured or generation fails.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.accessToken, nil
	}

	if c.tokenStore != nil {
		token, expiresAt, err := c.tokenStore.GetEbayToken()
		if err != nil {
			log.Warn().Err(err).Msg("failed to load persisted ebay token")
		} else if token != "" && time.Now().Before(expiresAt.Add(-tokenExpiryMargin)) {
			c.accessToken = token
			c.tokenExpiry = expiresAt
			return token, nil
		}
	}

	if c.clientID != "" && c.clientSecret != "" {
		token, expiresIn, err := c.generateToken(ctx)
		if err == nil {
			c.accessToken = token
			c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
			if c.tokenStore != nil {
				if err := c.tokenStore.SetEbayToken(token, c.tokenExpiry); err != nil {
					log.Warn().Err(err).Msg("failed to persist ebay token")
				}
			}
			return token, nil
		}
		log.Warn().Err(err).Msg("ebay token generation failed")
	}

	if c.staticToken != "" {
		return c.staticToken, nil
	}

	return "", errors.New("no ebay token available: set EBAY_CLIENT_ID/EBAY_CLIENT_SECRET or EBAY_OAUTH")
}

// generateToken runs the client-credentials grant, trying each known scope
// spelling until one succeeds.
func (c *Client) generateToken(ctx context.Context) (token string, expiresIn int, err error) {
	for _, scope := range tokenScopes {
		result := &tokenResponse{}
		tokenErr := &tokenErrorResponse{}

		res, err := c.httpClient.NewRequest().
			SetContext(ctx).
			SetBasicAuth(c.clientID, c.clientSecret).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetFormData(map[string]string{
				"grant_type": "client_credentials",
				"scope":      scope,
			}).
			SetResult(result).
			SetError(tokenErr).
			Post(tokenPath)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("ebay token request failed")
			continue
		}

		if !res.IsError() {
			if result.ExpiresIn == 0 {
				result.ExpiresIn = 7200
			}
			log.Info().Str("scope", scope).Int("expiresIn", result.ExpiresIn).Msg("generated ebay oauth token")
			return result.AccessToken, result.ExpiresIn, nil
		}

		// A scope rejection means this app wants a different spelling;
		// anything else is fatal.
		if res.StatusCode() == 400 && strings.Contains(strings.ToLower(tokenErr.ErrorDescription), "scope") {
			log.Debug().Str("scope", scope).Msg("ebay rejected scope, trying next")
			continue
		}
		return "", 0, fmt.Errorf("ebay token request failed (status %d): %s", res.StatusCode(), tokenErr.ErrorDescription)
	}

	return "", 0, errors.New("every known token scope was rejected")
}

// handleError is a generic error handler for failing responses (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.StatusCode() == 401 {
		return res, errors.New("ebay authentication failed (401), check credentials")
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
