package models

import (
	"time"
)

// Availability values mirror what the profile form offers.
const (
	AvailabilityOpen          = "Open"
	AvailabilityBusy          = "Busy"
	AvailabilityCollaboration = "Looking for Collaboration"
)

// ExperienceLevel values for the profile experience badge.
const (
	ExperienceBeginner     = "Beginner"
	ExperienceIntermediate = "Intermediate"
	ExperienceExpert       = "Expert"
)

// Profile is the public, self-editable record for a user. Stored in the
// PostgreSQL users table; the password hash never leaves the auth layer.
type Profile struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Skills          []string  `json:"skills,omitempty"`
	RoleTitle       string    `json:"role_title,omitempty"`
	Location        string    `json:"location,omitempty"`
	Availability    string    `json:"availability,omitempty"`
	ExperienceLevel string    `json:"experience_level,omitempty"`
	WebsiteURL      string    `json:"website_url,omitempty"`
	GithubURL       string    `json:"github_url,omitempty"`
	LinkedinURL     string    `json:"linkedin_url,omitempty"`
	DribbbleURL     string    `json:"dribbble_url,omitempty"`
	FollowersCount  int       `json:"followers_count"`
	FollowingCount  int       `json:"following_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProfileUpdate carries the self-editable fields of a profile save.
// Nil pointers mean "leave unchanged" so partial saves don't blank fields.
type ProfileUpdate struct {
	DisplayName     *string  `json:"display_name,omitempty"`
	AvatarURL       *string  `json:"avatar_url,omitempty"`
	Bio             *string  `json:"bio,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	RoleTitle       *string  `json:"role_title,omitempty"`
	Location        *string  `json:"location,omitempty"`
	Availability    *string  `json:"availability,omitempty"`
	ExperienceLevel *string  `json:"experience_level,omitempty"`
	WebsiteURL      *string  `json:"website_url,omitempty"`
	GithubURL       *string  `json:"github_url,omitempty"`
	LinkedinURL     *string  `json:"linkedin_url,omitempty"`
	DribbbleURL     *string  `json:"dribbble_url,omitempty"`
}

// DirectoryEntry is the trimmed profile shape used by the user directory.
type DirectoryEntry struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	RoleTitle   string `json:"role_title,omitempty"`
}
