package models

// AuthToken is one entry of the persisted key-value token store.
type AuthToken struct {
	Base
	Name  string `gorm:"type:varchar(64);not null;uniqueIndex" json:"name"`
	Value string `gorm:"type:text;not null" json:"-"`
}

// TokenPair is the bearer access token and the refresh token used to renew it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsZero reports whether neither token is set.
func (p TokenPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}
