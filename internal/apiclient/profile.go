package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const (
	opProfile       = "apiclient.profile"
	opUpdateProfile = "apiclient.update_profile"
)

// Profile holds the editable account details of the signed-in user.
type Profile struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
}

// Profile returns the details of the signed-in user.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	request, err := c.newRequest(ctx, http.MethodGet, c.resolve(c.endpoints.Profile, nil), nil, "")
	if err != nil {
		return Profile{}, err
	}
	var profile Profile
	if err := c.do(opProfile, request, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// UpdateProfile replaces the details of the signed-in user.
func (c *Client) UpdateProfile(ctx context.Context, profile Profile) error {
	encoded, err := json.Marshal(Profile{
		FullName:  strings.TrimSpace(profile.FullName),
		BirthDate: strings.TrimSpace(profile.BirthDate),
	})
	if err != nil {
		return err
	}
	request, err := c.newRequest(ctx, http.MethodPut, c.resolve(c.endpoints.UpdateProfile, nil), bytes.NewReader(encoded), "application/json")
	if err != nil {
		return err
	}
	return c.do(opUpdateProfile, request, nil)
}
