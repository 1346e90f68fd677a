package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// defaultTokenLifetime applies when Google omits expires_in.
const defaultTokenLifetime = time.Hour

// Token is the result of a code exchange or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	IDToken      string
}

// UserInfo is the OpenID Connect profile of the signed-in user.
type UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthURL,
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// ClientID returns the configured OAuth client id.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// HasClientSecret reports whether a client secret is configured.
func (c *Client) HasClientSecret() bool {
	return c.cfg.ClientSecret != ""
}

// AuthCodeURL builds the consent URL. Offline access with a forced consent
// prompt makes Google return a refresh token every time.
func (c *Client) AuthCodeURL(state, redirectURI string) string {
	return c.oauthConfig(redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, &Error{
			Code:    CodeTokenExchangeFailed,
			Message: fmt.Sprintf("Failed to exchange code for tokens: %v", err),
			Status:  retrieveStatus(err),
			Err:     err,
		}
	}
	return toToken(tok), nil
}

// Refresh obtains a new access token. Any failure means the grant is no
// longer usable and the user must reconnect.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, &Error{
			Code:    CodeOAuthRevoked,
			Message: "No refresh token available. User needs to reconnect Google.",
		}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	src := c.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, &Error{
			Code:    CodeOAuthRevoked,
			Message: "Failed to refresh access token. User may need to reconnect Google.",
			Status:  retrieveStatus(err),
			Err:     err,
		}
	}
	return toToken(tok), nil
}

// UserInfo fetches the profile for an access token.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	resp, err := c.do(ctx, c.http, func() (*http.Request, error) {
		return c.newAuthorizedRequest(ctx, c.cfg.UserInfoURL, accessToken)
	})
	if err != nil {
		return nil, wrap(CodeUserInfoFailed, "Failed to get user info", err)
	}
	defer resp.Body.Close()

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, wrap(CodeUserInfoFailed, "Failed to decode user info", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, &Error{Code: CodeUserInfoFailed, Message: "Google profile is missing sub or email"}
	}
	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	return &info, nil
}

func toToken(tok *oauth2.Token) *Token {
	t := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if t.Expiry.IsZero() {
		t.Expiry = time.Now().Add(defaultTokenLifetime)
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		t.IDToken = id
	}
	return t
}

func retrieveStatus(err error) int {
	if re, ok := err.(*oauth2.RetrieveError); ok && re.Response != nil {
		return re.Response.StatusCode
	}
	return 0
}
