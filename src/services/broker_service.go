package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/models"
	"github.com/username/carteraclaro/backend/src/utils"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Structs for the broker API responses.
type brokerTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type brokerFactorResponse struct {
	ID string `json:"id"`
}

type brokerUserResponse struct {
	IDAccounts []int64 `json:"id_accounts"`
}

type brokerQuote struct {
	ShortTicker string  `json:"short_ticker"`
	Term        string  `json:"term"`
	Last        float64 `json:"last"`
}

type brokerPortfolioResponse struct {
	Total models.AccountTotal `json:"total"`
}

// BrokerConfig collects everything the client needs to open a session.
type BrokerConfig struct {
	BaseURL      string
	Email        string
	Password     string
	PriceTerm    string
	PriceTTL     time.Duration
	RequestDelay time.Duration
}

// brokerServiceImpl implements BrokerService against the brokerage's REST
// API. It keeps one authenticated http.Client with a cookie jar; the bearer
// token and account id header are refreshed on login and 2FA verification.
type brokerServiceImpl struct {
	cfg          BrokerConfig
	codeProvider TwoFactorCodeProvider
	httpClient   *http.Client
	limiter      *rate.Limiter
	priceCache   *cache.Cache

	token     string
	accountID int64
}

// NewBrokerService creates the broker client and opens a session. Login
// failure is returned rather than deferred: a client without a session
// cannot serve any request.
func NewBrokerService(ctx context.Context, cfg BrokerConfig, codeProvider TwoFactorCodeProvider) (BrokerService, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 250 * time.Millisecond
	}
	s := &brokerServiceImpl{
		cfg:          cfg,
		codeProvider: codeProvider,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 20 * time.Second,
		},
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		priceCache: cache.New(cfg.PriceTTL, 2*cfg.PriceTTL),
	}

	if err := s.login(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// login authenticates with password, walks the 2FA challenge, and resolves
// the account id used in the x-account-id header.
func (s *brokerServiceImpl) login(ctx context.Context) error {
	logger.L.Info("Opening broker session", "baseURL", s.cfg.BaseURL)

	var tokenResp brokerTokenResponse
	payload := map[string]interface{}{
		"email":                s.cfg.Email,
		"password":             s.cfg.Password,
		"gotrue_meta_security": map[string]interface{}{},
	}
	if err := s.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", payload, &tokenResp); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerAuth, err)
	}
	if tokenResp.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrBrokerAuth)
	}
	s.token = tokenResp.AccessToken

	if err := s.verifyTwoFactor(ctx); err != nil {
		return err
	}

	var userResp brokerUserResponse
	if err := s.doJSON(ctx, http.MethodGet, "/api/v1/users/me", nil, &userResp); err != nil {
		return fmt.Errorf("%w: fetching account info: %v", ErrBrokerAuth, err)
	}
	if len(userResp.IDAccounts) == 0 {
		return fmt.Errorf("%w: no accounts on user", ErrBrokerAuth)
	}
	s.accountID = userResp.IDAccounts[0]

	logger.L.Info("Broker session established", "accountID", s.accountID)
	return nil
}

// verifyTwoFactor requests a challenge on the default factor and verifies
// the code obtained from the configured provider. Accounts without a default
// factor skip this step.
func (s *brokerServiceImpl) verifyTwoFactor(ctx context.Context) error {
	var factor brokerFactorResponse
	if err := s.doJSON(ctx, http.MethodGet, "/auth/v1/factors/default", nil, &factor); err != nil || factor.ID == "" {
		logger.L.Info("No default 2FA factor, continuing without second factor")
		return nil
	}

	challenge := map[string]interface{}{"id": factor.ID}
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("/auth/v1/factors/%s/challenge", factor.ID), challenge, nil); err != nil {
		return fmt.Errorf("%w: requesting 2FA challenge: %v", ErrBrokerAuth, err)
	}

	code, err := s.codeProvider.Code(ctx)
	if err != nil {
		return fmt.Errorf("%w: obtaining 2FA code: %v", ErrBrokerAuth, err)
	}

	var verifyResp brokerTokenResponse
	verify := map[string]interface{}{"challenge_id": factor.ID, "code": code}
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("/auth/v1/factors/%s/verify", factor.ID), verify, &verifyResp); err != nil {
		return fmt.Errorf("%w: verifying 2FA code: %v", ErrBrokerAuth, err)
	}
	// The token rotates on every successful verification.
	if verifyResp.AccessToken != "" {
		s.token = verifyResp.AccessToken
	}
	return nil
}

func (s *brokerServiceImpl) GetTransfers(ctx context.Context, from, to time.Time) ([]models.RawTransfer, error) {
	if to.IsZero() {
		to = time.Now()
	}
	path := fmt.Sprintf("/api/v1/transfers?date_from=%s&date_to=%s",
		from.Format(utils.BrokerDateFormat), to.Format(utils.BrokerDateFormat))

	var transfers []models.RawTransfer
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &transfers); err != nil {
		return nil, fmt.Errorf("%w: transfers: %v", ErrBrokerFetch, err)
	}
	logger.L.Info("Fetched transfers",
		"from", from.Format(utils.BrokerDateFormat),
		"to", to.Format(utils.BrokerDateFormat),
		"count", len(transfers))
	return transfers, nil
}

// GetTickerPrice returns the last traded price for the configured settlement
// term. Results are cached so pricing many open positions of the same ticker
// costs one request.
func (s *brokerServiceImpl) GetTickerPrice(ctx context.Context, ticker string) (float64, error) {
	if cached, found := s.priceCache.Get(ticker); found {
		return cached.(float64), nil
	}

	var quotes []brokerQuote
	path := fmt.Sprintf("/api/v1/markets/tickers/%s?segment=C", ticker)
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &quotes); err != nil {
		return 0, fmt.Errorf("%w: quotes for %s: %v", ErrBrokerFetch, ticker, err)
	}

	for _, quote := range quotes {
		if quote.ShortTicker == ticker && quote.Term == s.cfg.PriceTerm {
			s.priceCache.Set(ticker, quote.Last, cache.DefaultExpiration)
			return quote.Last, nil
		}
	}
	return 0, fmt.Errorf("%w: %s term %s", ErrNoPriceForTerm, ticker, s.cfg.PriceTerm)
}

func (s *brokerServiceImpl) GetAccountTotal(ctx context.Context) (models.AccountTotal, error) {
	var portfolio brokerPortfolioResponse
	if err := s.doJSON(ctx, http.MethodGet, "/api/v1/wallet/portfolio", nil, &portfolio); err != nil {
		return models.AccountTotal{}, fmt.Errorf("%w: portfolio total: %v", ErrBrokerFetch, err)
	}
	return portfolio.Total, nil
}

// doJSON performs one rate-limited request with the session headers and
// decodes the JSON response into out (when non-nil).
func (s *brokerServiceImpl) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if s.accountID != 0 {
		req.Header.Set("x-account-id", fmt.Sprintf("%d", s.accountID))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned status %d. Body: %s", method, path, resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// StaticCodeProvider returns a code fixed at construction time. It backs
// deployments where the operator feeds the mailed code through the
// environment before a run.
type StaticCodeProvider struct {
	code string
}

func NewStaticCodeProvider(code string) *StaticCodeProvider {
	return &StaticCodeProvider{code: code}
}

func (p *StaticCodeProvider) Code(ctx context.Context) (string, error) {
	if p.code == "" {
		return "", fmt.Errorf("no 2FA code configured")
	}
	return p.code, nil
}
