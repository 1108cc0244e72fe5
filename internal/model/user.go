package model

import "time"

const SessionVersion = 2

type User struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}

// UserUpdate is a partial user; nil fields are left untouched.
type UserUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	Email     *string
	Avatar    *string
}

func (u User) Apply(update UserUpdate) User {
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	return u
}

// UpdateFromUser sets every field of u.
func UpdateFromUser(u User) UserUpdate {
	return UserUpdate{
		Username:  &u.Username,
		FirstName: &u.FirstName,
		LastName:  &u.LastName,
		Email:     &u.Email,
		Avatar:    &u.Avatar,
	}
}

type Session struct {
	Version      int    `json:"version"`
	SavedAt      int64  `json:"savedAt"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         User   `json:"user"`
}

func (s Session) SavedTime() time.Time {
	return time.UnixMilli(s.SavedAt)
}

// LocalUser is an entry of the on-device user directory used while the API
// is unreachable.
type LocalUser struct {
	User
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
