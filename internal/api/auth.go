package api

import "context"

// Validate re-validates a cached token against GET /validar. The token
// is passed explicitly because the session store calls this before the
// session is established.
func (c *Client) Validate(ctx context.Context, token string) (*Credentials, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	var creds Credentials
	if err := c.do(ctx, "GET", c.authBaseURL+"/validar", token, nil, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	var creds Credentials
	if err := c.do(ctx, "POST", c.authBaseURL+"/login", "", body, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Credentials, error) {
	var creds Credentials
	if err := c.do(ctx, "POST", c.authBaseURL+"/register", "", req, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// RecoverPassword starts password recovery for the given email.
func (c *Client) RecoverPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, "POST", c.baseURL+"/users/password-recovery", "", body, nil)
}

// GetProfile fetches the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.authed(ctx, "GET", c.baseURL+"/users/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile saves the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	var p Profile
	if err := c.authed(ctx, "PUT", c.baseURL+"/users/profile", upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
