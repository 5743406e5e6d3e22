package model

// Session is the authentication state of one browser client.
type Session struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
	Loading       bool  `json:"loading"`
}
