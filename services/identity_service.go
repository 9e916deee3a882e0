package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"

	"file-approval-api/models"
)

// IdentityProvider resolves a username to its role and team assignment. The
// approval core consumes only this interface; tests inject a stub.
type IdentityProvider interface {
	GetIdentity(ctx context.Context, username string) (models.Identity, error)
}

// CredentialVerifier is implemented by identity sources that can also check a
// password, which the login endpoint uses. The core itself never sees passwords.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (models.Identity, string, error)
}

// NewIdentityProvider picks the provider implementation from the configured
// source: a MySQL handle when one was opened, otherwise a users JSON file path.
func NewIdentityProvider(db *gorm.DB, source string) IdentityProvider {
	if db != nil {
		return &DBIdentityProvider{db: db}
	}
	return &FileIdentityProvider{path: source}
}

// DBIdentityProvider reads the users table of the authentication datastore.
type DBIdentityProvider struct {
	db *gorm.DB
}

func (p *DBIdentityProvider) GetIdentity(ctx context.Context, username string) (models.Identity, error) {
	var user models.User
	err := p.db.WithContext(ctx).
		Where("username = ? AND delete_at IS NULL", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Identity{}, ErrUnknownUser(username)
		}
		return models.Identity{}, ErrStoreUnavailable("identity lookup failed: " + err.Error())
	}
	return models.Identity{
		Username: user.Username,
		Role:     models.NormalizeRole(user.Role),
		Teams:    user.Teams(),
	}, nil
}

func (p *DBIdentityProvider) VerifyCredentials(ctx context.Context, username, password string) (models.Identity, string, error) {
	var user models.User
	err := p.db.WithContext(ctx).
		Where("username = ? AND delete_at IS NULL", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Identity{}, "", ErrUnknownUser(username)
		}
		return models.Identity{}, "", ErrStoreUnavailable("identity lookup failed: " + err.Error())
	}
	identity := models.Identity{
		Username: user.Username,
		Role:     models.NormalizeRole(user.Role),
		Teams:    user.Teams(),
	}
	return identity, user.PasswordHash, nil
}

// fileUser is one entry of the users JSON document. The document is a map keyed
// by email, the shape the desktop tooling maintains.
type fileUser struct {
	Username     string   `json:"username"`
	Role         string   `json:"role"`
	TeamTags     []string `json:"team_tags"`
	PasswordHash string   `json:"password_hash"`
}

// FileIdentityProvider reads identities from a users JSON file. The file is
// re-read on every lookup; identity is never cached beyond one operation.
type FileIdentityProvider struct {
	path string
}

func (p *FileIdentityProvider) load() (map[string]fileUser, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]fileUser{}, nil
		}
		return nil, ErrStoreUnavailable("users file unreadable: " + err.Error())
	}
	users := map[string]fileUser{}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, ErrCorrupt("users file malformed: " + err.Error())
	}
	return users, nil
}

func (p *FileIdentityProvider) find(username string) (fileUser, bool, error) {
	users, err := p.load()
	if err != nil {
		return fileUser{}, false, err
	}
	for _, user := range users {
		if user.Username == username {
			return user, true, nil
		}
	}
	return fileUser{}, false, nil
}

func (p *FileIdentityProvider) GetIdentity(ctx context.Context, username string) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	user, ok, err := p.find(username)
	if err != nil {
		return models.Identity{}, err
	}
	if !ok {
		return models.Identity{}, ErrUnknownUser(username)
	}
	teams := make([]string, 0, len(user.TeamTags))
	for _, tag := range user.TeamTags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			teams = append(teams, trimmed)
		}
	}
	return models.Identity{
		Username: username,
		Role:     models.NormalizeRole(user.Role),
		Teams:    teams,
	}, nil
}

func (p *FileIdentityProvider) VerifyCredentials(ctx context.Context, username, password string) (models.Identity, string, error) {
	identity, err := p.GetIdentity(ctx, username)
	if err != nil {
		return models.Identity{}, "", err
	}
	user, _, err := p.find(username)
	if err != nil {
		return models.Identity{}, "", err
	}
	return identity, user.PasswordHash, nil
}

// ListTeamLeaders returns the usernames holding the team-leader role for team.
func (p *DBIdentityProvider) ListTeamLeaders(ctx context.Context, team string) ([]string, error) {
	var users []models.User
	err := p.db.WithContext(ctx).
		Where("role IN ? AND delete_at IS NULL", []string{models.RoleTeamLeader, "TEAM LEADER"}).
		Find(&users).Error
	if err != nil {
		return nil, ErrStoreUnavailable("team leader lookup failed: " + err.Error())
	}
	var leaders []string
	for _, user := range users {
		for _, tag := range user.Teams() {
			if tag == team {
				leaders = append(leaders, user.Username)
				break
			}
		}
	}
	return leaders, nil
}

// ListTeamLeaders returns the usernames holding the team-leader role for team.
func (p *FileIdentityProvider) ListTeamLeaders(ctx context.Context, team string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := p.load()
	if err != nil {
		return nil, err
	}
	var leaders []string
	for _, user := range users {
		if models.NormalizeRole(user.Role) != models.RoleTeamLeader {
			continue
		}
		for _, tag := range user.TeamTags {
			if strings.TrimSpace(tag) == team {
				leaders = append(leaders, user.Username)
				break
			}
		}
	}
	return leaders, nil
}

// StubIdentityProvider serves identities from a fixed map. Tests use it to
// exercise the engine without a datastore.
type StubIdentityProvider struct {
	Users map[string]models.Identity
}

func (p *StubIdentityProvider) GetIdentity(ctx context.Context, username string) (models.Identity, error) {
	if identity, ok := p.Users[username]; ok {
		identity.Role = models.NormalizeRole(identity.Role)
		return identity, nil
	}
	return models.Identity{}, ErrUnknownUser(username)
}

func (p *StubIdentityProvider) ListTeamLeaders(ctx context.Context, team string) ([]string, error) {
	var leaders []string
	for username, identity := range p.Users {
		if models.NormalizeRole(identity.Role) == models.RoleTeamLeader && identity.HasTeam(team) {
			leaders = append(leaders, username)
		}
	}
	return leaders, nil
}
