package model

const DefaultAvatar = "/assets/default-avatar.png"

type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}

func DefaultProfile() Profile {
	return Profile{
		FirstName: "John",
		LastName:  "Doe",
		Username:  "johndoe",
		Email:     "johndoe@gmail.com",
		Avatar:    DefaultAvatar,
	}
}

// Overlay returns p with every non-empty field of stored applied on top.
func (p Profile) Overlay(stored Profile) Profile {
	if stored.FirstName != "" {
		p.FirstName = stored.FirstName
	}
	if stored.LastName != "" {
		p.LastName = stored.LastName
	}
	if stored.Username != "" {
		p.Username = stored.Username
	}
	if stored.Email != "" {
		p.Email = stored.Email
	}
	if stored.Avatar != "" {
		p.Avatar = stored.Avatar
	}
	return p
}

func (p Profile) User() User {
	return User{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Avatar:    p.Avatar,
	}
}
