package credential

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/relayops/apierr"
)

// Source mints a credential for a scope set. Implementations must be safe
// for concurrent use; the provider serializes refreshes per scope set, but
// distinct scope sets may mint concurrently.
type Source interface {
	// Name returns a unique identifier for this source.
	Name() string

	// Mint produces a fresh credential for the given scopes.
	Mint(ctx context.Context, scopes []string) (*Credential, error)
}

// APIKeySource wraps a static API key. The key never expires; the provider
// caches it for the life of the process.
type APIKeySource struct {
	key string
}

// NewAPIKeySource creates a static key source.
func NewAPIKeySource(key string) *APIKeySource {
	return &APIKeySource{key: key}
}

// Name returns "api-key".
func (s *APIKeySource) Name() string { return "api-key" }

// Mint returns the static key with no expiry.
func (s *APIKeySource) Mint(_ context.Context, scopes []string) (*Credential, error) {
	if s.key == "" {
		return nil, apierr.Wrap(apierr.KindConfiguration, ErrMissingKey)
	}
	return NewCredential(s.key, time.Time{}, scopes), nil
}

// OAuthClientSource exchanges client credentials for a bearer token at an
// OAuth2 token endpoint (client_credentials grant).
type OAuthClientSource struct {
	// TokenURL is the token endpoint.
	TokenURL string

	// ClientID and ClientSecret authenticate the exchange.
	ClientID     string
	ClientSecret string

	// HTTPClient is used for the exchange. If nil, a default client with
	// a 30s timeout is used.
	HTTPClient *http.Client
}

// Name returns "oauth-client".
func (s *OAuthClientSource) Name() string { return "oauth-client" }

// tokenResponse is the token endpoint response format (RFC 6749 §5.1).
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Mint performs the client_credentials exchange.
func (s *OAuthClientSource) Mint(ctx context.Context, scopes []string) (*Credential, error) {
	if s.TokenURL == "" {
		return nil, apierr.Wrap(apierr.KindConfiguration, ErrMissingEndpoint)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, fmt.Errorf("create token request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.ClientID, s.ClientSecret)

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindAuthentication, fmt.Errorf("token endpoint unreachable: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.Wrap(apierr.KindAuthentication,
			fmt.Errorf("%w: token endpoint status %d", ErrRejected, resp.StatusCode))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, apierr.Wrap(apierr.KindAuthentication, fmt.Errorf("decode token response: %w", err))
	}
	if tr.AccessToken == "" {
		return nil, apierr.Wrap(apierr.KindAuthentication,
			fmt.Errorf("%w: empty access token", ErrRejected))
	}

	var expiresAt time.Time
	if tr.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return NewCredential(tr.AccessToken, expiresAt, scopes), nil
}

// KeyPairSource signs short-lived RS256 assertions with a local private
// key (the key-pair JWT scheme used by warehouse-style APIs). No network
// call is needed to mint; the peer validates the signature.
type KeyPairSource struct {
	// Issuer is the iss claim, typically "account.user".
	Issuer string

	// Subject is the sub claim. Defaults to Issuer.
	Subject string

	// Audience is the aud claim (the target host), optional.
	Audience string

	// PrivateKey signs the assertion.
	PrivateKey *rsa.PrivateKey

	// TTL is the assertion lifetime. Default: 1 hour.
	TTL time.Duration
}

// Name returns "key-pair".
func (s *KeyPairSource) Name() string { return "key-pair" }

// Mint signs a fresh assertion.
func (s *KeyPairSource) Mint(_ context.Context, scopes []string) (*Credential, error) {
	if s.PrivateKey == nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, ErrMissingKey)
	}
	if s.Issuer == "" {
		return nil, apierr.Wrap(apierr.KindConfiguration,
			fmt.Errorf("credential: key-pair source requires an issuer"))
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	subject := s.Subject
	if subject == "" {
		subject = s.Issuer
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{
		"iss": s.Issuer,
		"sub": subject,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	if s.Audience != "" {
		claims["aud"] = s.Audience
	}
	if len(scopes) > 0 {
		claims["scope"] = strings.Join(scopes, " ")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.PrivateKey)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, fmt.Errorf("sign assertion: %w", err))
	}

	return NewCredential(signed, expiresAt, scopes), nil
}

// Ensure sources implement Source.
var (
	_ Source = (*APIKeySource)(nil)
	_ Source = (*OAuthClientSource)(nil)
	_ Source = (*KeyPairSource)(nil)
)
