package models

import (
	"strings"
	"time"
)

// Canonical role strings. A single whitespace variant ("TEAM LEADER") is accepted
// at the identity boundary and rewritten; nothing inward of it sees the space form.
const (
	RoleUser       = "USER"
	RoleTeamLeader = "TEAM_LEADER"
	RoleAdmin      = "ADMIN"
)

// NormalizeRole canonicalizes a stored role string.
func NormalizeRole(role string) string {
	normalized := strings.ToUpper(strings.TrimSpace(role))
	if normalized == "TEAM LEADER" {
		normalized = RoleTeamLeader
	}
	return normalized
}

// Identity is the role/team assignment the core reads for an actor. The core never
// caches it beyond a single operation.
type Identity struct {
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Teams    []string `json:"teams"`
}

// HasTeam reports whether the identity carries the given team tag.
func (id Identity) HasTeam(team string) bool {
	for _, t := range id.Teams {
		if t == team {
			return true
		}
	}
	return false
}

// User is a row of the identity datastore when IDENTITY_PROVIDER_SOURCE is a MySQL
// DSN. Team tags are stored comma-separated.
type User struct {
	UserID       int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	Username     string     `gorm:"column:username;unique" json:"username"`
	Email        string     `gorm:"column:email" json:"email"`
	PasswordHash string     `gorm:"column:password_hash" json:"-"`
	Role         string     `gorm:"column:role" json:"role"`
	TeamTags     string     `gorm:"column:team_tags" json:"team_tags"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName specifies the table for User.
func (User) TableName() string {
	return "users"
}

// Teams splits the comma-separated team tags.
func (u User) Teams() []string {
	if strings.TrimSpace(u.TeamTags) == "" {
		return nil
	}
	parts := strings.Split(u.TeamTags, ",")
	teams := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			teams = append(teams, tag)
		}
	}
	return teams
}
