package model

// User is the dashboard operator returned by the login endpoint.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// GoogleUser is the ads-platform identity linked through OAuth.
type GoogleUser struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// GoogleConnection caches the server's view of the OAuth link.
type GoogleConnection struct {
	IsConnected bool        `json:"connected"`
	GoogleUser  *GoogleUser `json:"user,omitempty"`
}
