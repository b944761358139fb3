package entity

import (
	"time"
)

// User is the aggregate root for user domain
// Passwords are stored as argon2id hashes in Password field, never plaintext.
//
// The JSON form is the UserCreated event body, so field names follow the
// wire contract consumed by downstream services.
type User struct {
	ID        int64     `json:"id"`
	Fullname  string    `json:"fullname"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile is the public view of a user.
type Profile struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Fullname: u.Fullname, Email: u.Email, Role: u.Role}
}
