package models

type UserAccount struct {
	JsonModel
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Banned   bool   `gorm:"default:false" json:"-"`
	LastIp   string `json:"-"`
	GoogleID string `gorm:"index" json:"-"`
	AppleID  string `gorm:"index" json:"-"`
	// Platform is the client the account last signed in from
	Platform  Platform `json:"platform"`
	AvatarURL string   `json:"avatar_url"`

	ReceiveNotifications bool           `gorm:"default:true" json:"receive_notifications"`
	PushTokens           []UserPushToken `gorm:"foreignKey:UserAccountID" json:"-"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint        `gorm:"index"`
	UserAccount   UserAccount `json:"-"`
	Platform      Platform    `json:"platform"`
	Token         string      `gorm:"index" json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}

type UserPushDeleteIn struct {
	Token string `json:"token" validate:"required"`
}
