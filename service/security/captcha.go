package security

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verifier checks a client-supplied proof token against an external
// verification service.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// DefaultSiteVerifyURL is Google's reCAPTCHA verification endpoint.
const DefaultSiteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaVerifier verifies tokens against the reCAPTCHA siteverify
// endpoint using a server-held secret.
type RecaptchaVerifier struct {
	secret     string
	endpoint   string
	httpClient *http.Client
}

// RecaptchaOption customizes a RecaptchaVerifier.
type RecaptchaOption func(*RecaptchaVerifier)

// WithEndpoint overrides the verification endpoint (used in tests).
func WithEndpoint(endpoint string) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.httpClient = c }
}

// NewRecaptchaVerifier creates a verifier with the given server secret.
func NewRecaptchaVerifier(secret string, opts ...RecaptchaOption) *RecaptchaVerifier {
	v := &RecaptchaVerifier{
		secret:     secret,
		endpoint:   DefaultSiteVerifyURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// siteVerifyResponse is the subset of the siteverify response we consume.
type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token and the server secret to the verification endpoint
// and returns the service's success flag. A missing token is a failed proof,
// not an error.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("captcha verification returned status %d", resp.StatusCode)
	}

	var result siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode verification response: %w", err)
	}
	return result.Success, nil
}
