package storage

import "time"

// Settings is the per-user settings document.
// WorkingDay and ThemeOverrides are JSON blobs owned by the attendance and theme packages.
type Settings struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"ownerId" db:"owner_id"`
	Timezone       string    `json:"timezone" db:"timezone"`
	WorkingDay     string    `json:"workingDay,omitempty" db:"working_day"`
	ThemeOverrides string    `json:"themeOverrides,omitempty" db:"theme_overrides"`
	PushToken      string    `json:"pushToken,omitempty" db:"push_token"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// SettingsPatch holds the settings fields to change. Nil fields are left as is.
type SettingsPatch struct {
	Timezone       *string
	WorkingDay     *string
	ThemeOverrides *string
	PushToken      *string
}

func (p SettingsPatch) Apply(s *Settings) {
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
	if p.WorkingDay != nil {
		s.WorkingDay = *p.WorkingDay
	}
	if p.ThemeOverrides != nil {
		s.ThemeOverrides = *p.ThemeOverrides
	}
	if p.PushToken != nil {
		s.PushToken = *p.PushToken
	}
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
