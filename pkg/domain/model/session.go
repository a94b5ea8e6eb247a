package model

import "time"

// Session is the authenticated caller of an operation. It is passed
// explicitly to every use case instead of being read from a global.
type Session struct {
	AccountID AccountID
	Email     string `masq:"secret"`
	Name      string
	TokenID   string
	ExpiresAt time.Time

	// Profile is nil until the account completes signup
	Profile *UserProfile
}

func (s *Session) HasProfile() bool {
	return s != nil && s.Profile != nil
}

func (s *Session) IsHR() bool {
	return s.HasProfile() && s.Profile.IsHR()
}

func (s *Session) IsEmployee() bool {
	return s.HasProfile() && s.Profile.IsEmployee()
}

// ProfileID returns the profile id or empty when no profile is linked
func (s *Session) ProfileID() UserProfileID {
	if !s.HasProfile() {
		return ""
	}
	return s.Profile.ID
}
