package model

import (
	"net/mail"
	"strings"

	"github.com/xxxsen/wassup/internal/pkg/password"
)

// User is the stored account. It never leaves the service layer as JSON;
// handlers render PublicUser instead.
type User struct {
	ID                  string
	FirstName           string
	LastName            string
	Username            string
	Email               string
	PasswordHash        string
	Avatar              string
	ResetToken          string
	ResetTokenExpiresAt int64
	OTPID               string
	Ctime               int64
	Mtime               int64
}

// SetPassword hashes plain and stores the hash. It is the only way a
// password reaches a User.
func (u *User) SetPassword(plain string) error {
	hash, err := password.Hash(plain)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return password.Compare(u.PasswordHash, plain) == nil
}

func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Ctime:     u.Ctime,
		Mtime:     u.Mtime,
	}
}

type PublicUser struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"userName"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	Ctime     int64  `json:"createdAt"`
	Mtime     int64  `json:"updatedAt"`
}

// ProfilePatch holds the optional fields of a details update. Nil means
// "leave unchanged".
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Username  *string
}

func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Username == nil
}

// Apply copies the set fields onto u.
func (p ProfilePatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare addr-spec such as a@b.c.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
