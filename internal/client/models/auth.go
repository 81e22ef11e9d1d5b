package models

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login, register and profile update.
type AuthResponse struct {
	Token   string `json:"jwt_token"`
	Message string `json:"message,omitempty"`
}

type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileUpdate is the body of PUT /auth/profile. Empty fields are omitted
// and left unchanged by the server.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Username == "" && u.Password == ""
}
