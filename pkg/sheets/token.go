package sheets

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aec-internal/requisitions-api/pkg/config"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

// expiryLeeway forces a refresh slightly before the upstream expiry so an
// in-flight write never carries a token that dies mid-request.
const expiryLeeway = time.Minute

// TokenSource exchanges a signed service-account assertion for a short-lived
// bearer token (valid ~1h) used on all sheet write calls. Tokens are cached
// until close to expiry.
type TokenSource struct {
	email    string
	scope    string
	tokenURL string
	key      *rsa.PrivateKey
	client   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource parses the service-account private key and returns a
// ready-to-use source.
func NewTokenSource(cfg config.SheetConfig, client *http.Client) (*TokenSource, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	key, err := parsePrivateKey(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	return &TokenSource{
		email:    cfg.ServiceAccountEmail,
		scope:    cfg.Scope,
		tokenURL: cfg.TokenURL,
		key:      key,
		client:   client,
	}, nil
}

// Token returns a valid bearer token, minting a new one when the cached
// token is missing or about to expire.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiry.Add(-expiryLeeway)) {
		return ts.token, nil
	}

	token, expiresIn, err := ts.exchange(ctx)
	if err != nil {
		return "", err
	}

	ts.token = token
	ts.expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return ts.token, nil
}

func (ts *TokenSource) exchange(ctx context.Context) (string, int64, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.email,
		"scope": ts.scope,
		"aud":   ts.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.key)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrToken.Code, appErrors.ErrToken.Status, "failed to sign token assertion")
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrToken.Code, appErrors.ErrToken.Status, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrToken.Code, appErrors.ErrToken.Status, appErrors.ErrToken.Message)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrToken.Code, appErrors.ErrToken.Status, "failed to decode token response")
	}
	if payload.AccessToken == "" {
		return "", 0, appErrors.Clone(appErrors.ErrToken, fmt.Sprintf("token endpoint returned status %d without a token", resp.StatusCode))
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 3600
	}

	return payload.AccessToken, payload.ExpiresIn, nil
}

func parsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Older service-account exports use PKCS#1.
		if key, err1 := x509.ParsePKCS1PrivateKey(block.Bytes); err1 == nil {
			return key, nil
		}
		return nil, err
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not RSA")
	}
	return key, nil
}
