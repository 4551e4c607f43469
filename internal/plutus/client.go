package plutus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmaliar/cashback-pipeline/internal/apperrors"
	"github.com/dmaliar/cashback-pipeline/internal/logger"
)

const (
	DefaultAuthURL    = "https://authenticate.plutus.it/auth/login"
	DefaultAPIURL     = "https://api.plutus.it"
	DefaultGraphQLURL = "https://hasura.plutus.it/v1alpha1/graphql"

	requestTimeout = 30 * time.Second

	// Tokens within this window of their exp claim are treated as expired,
	// so a fetch never starts with a token about to lapse mid-flight.
	tokenLeeway = 30 * time.Second
)

// CaptchaSolver produces the captcha response the auth endpoint requires.
// Solving is an external concern, any implementation will do.
type CaptchaSolver interface {
	Solve(ctx context.Context, siteKey string, pageURL string) (string, error)
}

type Config struct {
	AuthURL    string
	APIURL     string
	GraphQLURL string

	Email    string
	Password string
	ClientID string
	SiteKey  string
}

// Client is an authenticated session against the rewards platform. It logs in
// lazily on the first call and again whenever the bearer token expires.
type Client struct {
	cfg     Config
	totp    *TOTP
	captcha CaptchaSolver

	client *http.Client
	logger logger.Logger

	mu    sync.Mutex
	token string
}

func NewClient(cfg Config, totpSecret string, captcha CaptchaSolver, log logger.Logger) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = DefaultGraphQLURL
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Client{
		cfg:     cfg,
		totp:    NewTOTP(totpSecret),
		captcha: captcha,
		client:  &http.Client{},
		logger:  log,
	}
}

type loginPayload struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
	ClientID string `json:"client_id"`
}

type loginResponse struct {
	IDToken string `json:"id_token"`
}

// Login authenticates and stores the bearer token on the session. When the
// first attempt comes back without an id_token the one-time code has usually
// lapsed mid-request, so it retries once with a fresh code.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	captcha, err := c.captcha.Solve(ctx, c.cfg.SiteKey, c.cfg.AuthURL)
	if err != nil {
		return fmt.Errorf("%w: captcha: %w", apperrors.ErrLoginFailed, err)
	}

	token, err := c.attemptLogin(ctx, captcha)
	if token == "" && err == nil {
		c.logger.Warn("Login returned no token, retrying with fresh one-time code")
		token, err = c.attemptLogin(ctx, captcha)
	}

	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", apperrors.ErrLoginFailed, err)
	case token == "":
		return apperrors.ErrLoginFailed
	}

	c.token = token
	c.logger.Debug("Logged in", "auth_url", c.cfg.AuthURL)
	return nil
}

func (c *Client) attemptLogin(ctx context.Context, captcha string) (string, error) {
	code, err := c.totp.Now()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(loginPayload{
		Email:    c.cfg.Email,
		Token:    code,
		Password: c.cfg.Password,
		Captcha:  captcha,
		ClientID: c.cfg.ClientID,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return login.IDToken, nil
}

// ensureToken re-logs in when there is no token yet or its exp has passed.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !tokenExpired(c.token) {
		return c.token, nil
	}
	if c.token != "" {
		c.logger.Info("Bearer token expired, logging in again")
	}

	if err := c.login(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

// tokenExpired reads the exp claim without verifying the signature: the
// platform signed the token, the session only needs to know when to renew it.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return time.Now().Add(tokenLeeway).After(exp.Time)
}

// getJSON issues an authenticated GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %w", apperrors.ErrFetchFailed, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if err := c.checkStatus(resp, url); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", apperrors.ErrFetchFailed, err)
	}

	return nil
}

// checkStatus maps non-200 responses. A 401 also forgets the cached token so
// the next call starts with a fresh login.
func (c *Client) checkStatus(resp *http.Response, url string) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		c.logger.Warn("Session rejected", "url", url)
		return fmt.Errorf("%w: status code %d", apperrors.ErrSessionExpired, resp.StatusCode)
	default:
		c.logger.Warn("Fetch failed", "url", url, "status_code", resp.StatusCode)
		return fmt.Errorf("%w: unexpected status code %d", apperrors.ErrFetchFailed, resp.StatusCode)
	}
}

// postJSON issues an authenticated POST with a JSON body and decodes the
// response into out.
func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %w", apperrors.ErrFetchFailed, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if err := c.checkStatus(resp, url); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", apperrors.ErrFetchFailed, err)
	}

	return nil
}
