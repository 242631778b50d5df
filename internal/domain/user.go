package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/common"
)

// Default daily goals applied when a profile does not set them.
const (
	DefaultCalorieGoal = 2000
	DefaultWaterGoalMl = 2000
	DefaultStepGoal    = 10000
)

// Goals are the user's daily targets.
type Goals struct {
	Calories int `json:"calories"`
	WaterMl  int `json:"waterMl"`
	Steps    int `json:"steps"`
}

// User is a profile document, keyed by email.
type User struct {
	Email              string     `json:"email"`
	DisplayName        string     `json:"displayName"`
	Goals              Goals      `json:"goals"`
	Premium            bool       `json:"premium"`
	PremiumSince       *time.Time `json:"premiumSince,omitempty"`
	OnboardingComplete bool       `json:"onboardingComplete"`
}

// Name returns the display name, falling back to the email.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

type userWire struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	Goals       *struct {
		Calories *int `json:"calories"`
		WaterMl  *int `json:"waterMl"`
		Steps    *int `json:"steps"`
	} `json:"goals"`
	Premium            *bool      `json:"premium"`
	PremiumSince       *time.Time `json:"premiumSince"`
	OnboardingComplete *bool      `json:"onboardingComplete"`
}

// ParseUser parses a users payload.
func ParseUser(raw []byte) (User, error) {
	const c = common.CollectionUsers

	var w userWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return User{}, invalid(c, "", err.Error())
	}

	if w.Email == nil || strings.TrimSpace(*w.Email) == "" {
		return User{}, invalid(c, "email", "required")
	}
	email := strings.ToLower(strings.TrimSpace(*w.Email))
	if !strings.Contains(email, "@") {
		return User{}, invalid(c, "email", "not an email address")
	}

	u := User{
		Email: email,
		Goals: Goals{Calories: DefaultCalorieGoal, WaterMl: DefaultWaterGoalMl, Steps: DefaultStepGoal},
	}
	if w.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*w.DisplayName)
	}
	if w.Goals != nil {
		if w.Goals.Calories != nil {
			u.Goals.Calories = *w.Goals.Calories
		}
		if w.Goals.WaterMl != nil {
			u.Goals.WaterMl = *w.Goals.WaterMl
		}
		if w.Goals.Steps != nil {
			u.Goals.Steps = *w.Goals.Steps
		}
	}
	if u.Goals.Calories < 0 {
		return User{}, invalid(c, "goals.calories", "must not be negative")
	}
	if u.Goals.WaterMl < 0 {
		return User{}, invalid(c, "goals.waterMl", "must not be negative")
	}
	if u.Goals.Steps < 0 {
		return User{}, invalid(c, "goals.steps", "must not be negative")
	}
	if w.Premium != nil {
		u.Premium = *w.Premium
	}
	if u.Premium {
		u.PremiumSince = w.PremiumSince
	}
	if w.OnboardingComplete != nil {
		u.OnboardingComplete = *w.OnboardingComplete
	}

	return u, nil
}
