package folio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/infrastructure/httpx"

	"github.com/golang-jwt/jwt/v5"
)

var _ application.TokenFetcher = (*TokenClient)(nil)

// TokenClient performs the OAuth client-credentials exchange.
type TokenClient struct {
	URL          string
	ClientID     string
	ClientSecret string
	Audience     string
	HTTP         *http.Client
}

type tokenResp struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
	TokenType   string  `json:"token_type"`
}

func (c *TokenClient) FetchToken(ctx context.Context) (application.Grant, error) {
	if c.URL == "" || c.ClientID == "" || c.ClientSecret == "" {
		return application.Grant{}, &application.TokenFetchError{Err: errors.New("folio: missing client credentials")}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("audience", c.Audience)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return application.Grant{}, &application.TokenFetchError{Err: fmt.Errorf("folio: create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body tokenResp
	hc := &httpx.Client{HTTP: c.HTTP}
	if err := hc.DoJSON(ctx, req, &body); err != nil {
		var re *httpx.ResponseError
		if errors.As(err, &re) {
			return application.Grant{}, &application.TokenFetchError{Status: re.Code, Body: re.Body, Err: err}
		}
		return application.Grant{}, &application.TokenFetchError{Err: fmt.Errorf("folio: token request: %w", err)}
	}
	if body.AccessToken == "" {
		return application.Grant{}, &application.TokenFetchError{Status: http.StatusOK, Err: errors.New("folio: missing access_token")}
	}

	g := application.Grant{AccessToken: body.AccessToken}
	if body.ExpiresIn > 0 {
		g.ExpiresIn = time.Duration(body.ExpiresIn * float64(time.Second))
	} else {
		g.Expiry = expiryClaim(body.AccessToken)
	}
	return g, nil
}

// expiryClaim reads exp from a JWT access token without verifying it. Opaque
// tokens yield the zero time.
func expiryClaim(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
