package github

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const defaultAPIURL = "https://api.github.com/"

// AppCredentials identify a GitHub App installation.
type AppCredentials struct {
	AppID          string
	InstallationID string
	PrivateKeyPath string

	// APIURL overrides the API root (tests, GitHub Enterprise). Empty means api.github.com.
	APIURL string
	// HTTP is the client used for the token exchange. Nil means http.DefaultClient.
	HTTP *http.Client
}

type AppToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AppInstallationToken exchanges a short-lived App JWT for an installation
// access token. The token inherits the installation's repository access, which
// is what makes private org repositories listable and clonable.
func AppInstallationToken(ctx context.Context, creds AppCredentials) (*AppToken, error) {
	key, err := loadRSAPrivateKey(creds.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, nil)
	if err != nil {
		return nil, fmt.Errorf("github app: create signer: %w", err)
	}

	now := time.Now()
	cl := jwt.Claims{
		Issuer: creds.AppID,
		// 60 seconds in the past to allow for clock drift.
		IssuedAt: jwt.NewNumericDate(now.Add(-60 * time.Second)),
		// GitHub caps App JWTs at 10 minutes.
		Expiry: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}
	appJWT, err := jwt.Signed(signer).Claims(cl).Serialize()
	if err != nil {
		return nil, fmt.Errorf("github app: sign jwt: %w", err)
	}

	base := creds.APIURL
	if base == "" {
		base = defaultAPIURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	endpoint := fmt.Sprintf("%sapp/installations/%s/access_tokens", base, creds.InstallationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	hc := creds.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github app: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &AppTokenError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tok AppToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("github app: decode token response: %w", err)
	}
	if tok.Token == "" {
		return nil, errors.New("github app: empty token in response")
	}
	return &tok, nil
}

// AppTokenError is a non-201 response from the installation token endpoint.
type AppTokenError struct {
	StatusCode int
	Body       string
}

func (e *AppTokenError) Error() string {
	return fmt.Sprintf("github app: token response status %d: %s", e.StatusCode, e.Body)
}

func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("github app: read private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("github app: failed to decode PEM block containing private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("github app: private key is %T, want RSA", k)
		}
		return rk, nil
	default:
		return nil, fmt.Errorf("github app: unsupported PEM block type %q", block.Type)
	}
}
