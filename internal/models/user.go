// Package models contains data structures for the application's domain models.
package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents an account in the Orbit application.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PhoneNumber string         `gorm:"uniqueIndex;not null" json:"-"`
	Username    string         `gorm:"uniqueIndex;not null" json:"username"`
	Name        string         `json:"name"`
	Gender      string         `json:"gender,omitempty"`
	DOB         *time.Time     `json:"dob,omitempty"`
	MailAddress string         `json:"mail_address,omitempty"`
	Profession  string         `json:"profession,omitempty"`
	Bio         string         `json:"bio,omitempty"`
	Website     string         `json:"website,omitempty"`
	ProfileImg  string         `json:"profile_img,omitempty"`
	IsUser      bool           `gorm:"not null" json:"is_user"`
	IsCreator   bool           `gorm:"not null" json:"is_creator"`
	IsVerified  bool           `gorm:"not null" json:"is_verified"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// AccountKind selects the flag set NewUser applies.
type AccountKind string

const (
	AccountKindUser    AccountKind = "user"
	AccountKindCreator AccountKind = "creator"
)

// UserParams carries the signup fields accepted by NewUser.
type UserParams struct {
	PhoneNumber string      `json:"phone_number"`
	Username    string      `json:"username"`
	Name        string      `json:"name"`
	Gender      string      `json:"gender"`
	DOB         *time.Time  `json:"dob"`
	MailAddress string      `json:"mail_address"`
	Profession  string      `json:"profession"`
	Bio         string      `json:"bio"`
	Website     string      `json:"website"`
	ProfileImg  string      `json:"profile_img"`
	Kind        AccountKind `json:"kind"`
}

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// NewUser is the only place account flags are decided. Every signup path
// builds its User through here so IsUser, IsCreator and IsVerified never
// drift between call sites.
func NewUser(p UserParams) (*User, error) {
	username := strings.TrimSpace(p.Username)
	phone := strings.TrimSpace(p.PhoneNumber)

	if !usernamePattern.MatchString(username) {
		return nil, NewValidationError("Username must be 3-30 characters of letters, digits, '_' or '.'")
	}
	if !phonePattern.MatchString(phone) {
		return nil, NewValidationError("A valid phone number is required")
	}

	u := &User{
		PhoneNumber: phone,
		Username:    username,
		Name:        strings.TrimSpace(p.Name),
		Gender:      p.Gender,
		DOB:         p.DOB,
		MailAddress: strings.TrimSpace(p.MailAddress),
		Profession:  p.Profession,
		Bio:         p.Bio,
		Website:     p.Website,
		ProfileImg:  p.ProfileImg,
	}

	switch p.Kind {
	case "", AccountKindUser:
		u.IsUser = true
	case AccountKindCreator:
		u.IsCreator = true
	default:
		return nil, NewValidationError("Unknown account kind " + string(p.Kind))
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	return u, nil
}

// ProfileUpdate lists the profile fields a user may change on themselves.
// Account flags and identifiers cannot be changed this way.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	Gender      *string `json:"gender"`
	MailAddress *string `json:"mail_address"`
	Profession  *string `json:"profession"`
	Bio         *string `json:"bio"`
	Website     *string `json:"website"`
	ProfileImg  *string `json:"profile_img"`
}

// Apply copies the non-nil fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&u.Name, p.Name)
	set(&u.Gender, p.Gender)
	set(&u.MailAddress, p.MailAddress)
	set(&u.Profession, p.Profession)
	set(&u.Bio, p.Bio)
	set(&u.Website, p.Website)
	set(&u.ProfileImg, p.ProfileImg)
}
