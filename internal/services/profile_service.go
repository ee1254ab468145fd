package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/skillconnect/skillconnect-backend/internal/database"
	"github.com/skillconnect/skillconnect-backend/internal/models"
)

// ErrProfileNotFound is returned when no active user matches the lookup.
var ErrProfileNotFound = errors.New("profile not found")

const profileColumns = `id, username, display_name, avatar_url, bio, skills,
	role_title, location, availability, experience_level,
	website_url, github_url, linkedin_url, dribbble_url,
	followers_count, following_count, created_at, updated_at`

// ProfileService reads and writes public profiles in PostgreSQL, with a
// Redis read-through cache. Implements conversation.ProfileStore.
type ProfileService struct{}

// Profiles is the process-wide profile service.
var Profiles = &ProfileService{}

func profileCacheKey(id string) string {
	return CacheKey("profile", id)
}

// Get returns the profile for a user id. Cache first, Postgres on miss.
func (s *ProfileService) Get(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	if hit, _ := Cache.Get(profileCacheKey(id), &p); hit {
		return p, nil
	}

	row := database.PostgresDB.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users WHERE id = $1 AND is_active = TRUE
	`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, ErrProfileNotFound
		}
		return models.Profile{}, err
	}

	_ = Cache.Set(profileCacheKey(id), p)
	return p, nil
}

// List returns the user directory, excluding the viewer themselves.
func (s *ProfileService) List(ctx context.Context, excludeID string) ([]models.DirectoryEntry, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT id, username, display_name, avatar_url, role_title
		FROM users
		WHERE is_active = TRUE AND id != $1
		ORDER BY display_name, username
	`, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DirectoryEntry
	for rows.Next() {
		var e models.DirectoryEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.DisplayName, &e.AvatarURL, &e.RoleTitle); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update applies a self-edit. Nil fields are left unchanged. The cached
// profile is invalidated so the next read sees the save.
func (s *ProfileService) Update(ctx context.Context, id string, upd models.ProfileUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	i := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	if upd.DisplayName != nil {
		add("display_name", strings.TrimSpace(*upd.DisplayName))
	}
	if upd.AvatarURL != nil {
		add("avatar_url", strings.TrimSpace(*upd.AvatarURL))
	}
	if upd.Bio != nil {
		add("bio", *upd.Bio)
	}
	if upd.Skills != nil {
		add("skills", pq.Array(dedupeSkills(upd.Skills)))
	}
	if upd.RoleTitle != nil {
		add("role_title", strings.TrimSpace(*upd.RoleTitle))
	}
	if upd.Location != nil {
		add("location", strings.TrimSpace(*upd.Location))
	}
	if upd.Availability != nil {
		add("availability", *upd.Availability)
	}
	if upd.ExperienceLevel != nil {
		add("experience_level", *upd.ExperienceLevel)
	}
	if upd.WebsiteURL != nil {
		add("website_url", strings.TrimSpace(*upd.WebsiteURL))
	}
	if upd.GithubURL != nil {
		add("github_url", strings.TrimSpace(*upd.GithubURL))
	}
	if upd.LinkedinURL != nil {
		add("linkedin_url", strings.TrimSpace(*upd.LinkedinURL))
	}
	if upd.DribbbleURL != nil {
		add("dribbble_url", strings.TrimSpace(*upd.DribbbleURL))
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d AND is_active = TRUE`,
		strings.Join(sets, ", "), i)

	res, err := database.PostgresDB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}

	_ = Cache.Delete(profileCacheKey(id))
	return nil
}

// CreateUser inserts a new user row and returns its id. The profile is
// created implicitly at registration; display name defaults to username.
func (s *ProfileService) CreateUser(ctx context.Context, username, passwordHash string) (string, error) {
	var id string
	err := database.PostgresDB.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, display_name)
		VALUES ($1, $2, $1)
		RETURNING id
	`, username, passwordHash).Scan(&id)
	return id, err
}

// Credentials returns the user id and password hash for a username.
func (s *ProfileService) Credentials(ctx context.Context, username string) (string, string, error) {
	var id, hash string
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT id, password_hash FROM users
		WHERE LOWER(username) = $1 AND is_active = TRUE
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrProfileNotFound
	}
	return id, hash, err
}

// UsernameTaken reports whether a username is already registered.
func (s *ProfileService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = $1)
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&exists)
	return exists, err
}

func scanProfile(row *sql.Row) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Bio, pq.Array(&p.Skills),
		&p.RoleTitle, &p.Location, &p.Availability, &p.ExperienceLevel,
		&p.WebsiteURL, &p.GithubURL, &p.LinkedinURL, &p.DribbbleURL,
		&p.FollowersCount, &p.FollowingCount, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// dedupeSkills trims, drops empties and removes duplicates while keeping
// first-seen order. Skills are an unordered set of short strings.
func dedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
