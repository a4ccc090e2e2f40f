package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	opLogin         = "apiclient.login"
	opCreateAccount = "apiclient.create_account"
)

// ErrMissingCredentials indicates an empty username or password.
var ErrMissingCredentials = errors.New("apiclient: username and password required")

// LoginResult is the response of a successful login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	ExpiresIn   int64  `json:"expires_in"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Account holds the fields of the sign-up form.
type Account struct {
	FullName  string
	BirthDate string
	Email     string
	Username  string
	Password  string
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}
	encoded, err := json.Marshal(loginRequest{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		return LoginResult{}, err
	}
	request, err := c.newRequest(ctx, http.MethodPost, c.resolve(c.endpoints.Login, nil), bytes.NewReader(encoded), "application/json")
	if err != nil {
		return LoginResult{}, err
	}
	// credentials replace whatever session is stored
	request.Header.Del("Authorization")

	var result LoginResult
	if err := c.do(opLogin, request, &result); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// CreateAccount registers a new user.
func (c *Client) CreateAccount(ctx context.Context, account Account) error {
	if strings.TrimSpace(account.Username) == "" || account.Password == "" {
		return ErrMissingCredentials
	}
	body, contentType, err := encodeMultipart([]formField{
		{name: "fullname", value: account.FullName},
		{name: "birthdate", value: account.BirthDate},
		{name: "emailid", value: account.Email},
		{name: "username", value: strings.TrimSpace(account.Username)},
		{name: "password", value: account.Password},
	}, nil)
	if err != nil {
		return err
	}
	request, err := c.newRequest(ctx, http.MethodPost, c.resolve(c.endpoints.CreateAccount, nil), body, contentType)
	if err != nil {
		return err
	}
	request.Header.Del("Authorization")
	return c.do(opCreateAccount, request, nil)
}
