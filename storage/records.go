package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// SaveState upserts the diff baseline for a slug. The whole record is
// replaced in a single write, keyed by slug.
func (s *Store) SaveState(ctx context.Context, state *status.ServiceState) error {
	key := stateKey(state.Slug)
	if key == "" {
		return fmt.Errorf("invalid slug %q", state.Slug)
	}
	if err := s.write(ctx, key, state); err != nil {
		return err
	}
	s.logger.Info("Service baseline saved",
		"slug", state.Slug,
		"status", state.Status,
		"incident_id", state.IncidentID)
	return nil
}

// LoadState loads the baseline for a slug, ErrNotExist when absent.
func (s *Store) LoadState(ctx context.Context, slug string) (*status.ServiceState, error) {
	var state status.ServiceState
	if err := s.read(ctx, stateKey(slug), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ListStates loads all persisted baselines.
func (s *Store) ListStates(ctx context.Context) ([]*status.ServiceState, error) {
	keys, err := s.listKeys(ctx, "state-")
	if err != nil {
		return nil, err
	}
	var states []*status.ServiceState
	for _, key := range keys {
		var state status.ServiceState
		if err := s.read(ctx, key, &state); err != nil {
			s.logger.Warn("Failed to load baseline", "key", key, "error", err)
			continue
		}
		states = append(states, &state)
	}
	return states, nil
}

// SavePreference upserts a user's notification preference, keyed by the
// HMAC token of the owning email.
func (s *Store) SavePreference(ctx context.Context, pref *status.Preference) error {
	if pref.Email == "" {
		return errors.New("preference requires an owning email")
	}
	token := s.TokenFromEmail(pref.Email)
	if err := s.write(ctx, prefKey(token), pref); err != nil {
		return err
	}
	s.logger.Info("Preference saved", "email", pref.Email, "email_enabled", pref.EmailEnabled, "threshold", pref.Threshold)
	return nil
}

// LoadPreference loads a user's preference by email.
func (s *Store) LoadPreference(ctx context.Context, email string) (*status.Preference, error) {
	return s.LoadPreferenceByToken(ctx, s.TokenFromEmail(email))
}

// LoadPreferenceByToken loads a preference by its token, as used by
// unsubscribe links. Invalid tokens read as not-found so lookups leak
// nothing.
func (s *Store) LoadPreferenceByToken(ctx context.Context, token string) (*status.Preference, error) {
	var pref status.Preference
	if err := s.read(ctx, prefKey(token), &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

// SaveProject upserts a project.
func (s *Store) SaveProject(ctx context.Context, project *status.Project) error {
	key := projectKey(project.ID)
	if key == "" {
		return fmt.Errorf("invalid project id %q", project.ID)
	}
	return s.write(ctx, key, project)
}

// LoadProject loads a project by id.
func (s *Store) LoadProject(ctx context.Context, id string) (*status.Project, error) {
	var project status.Project
	if err := s.read(ctx, projectKey(id), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project. Deleting a missing project is a no-op.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	key := projectKey(id)
	if key == "" {
		return fmt.Errorf("invalid project id %q", id)
	}
	return s.delete(ctx, key)
}

// SaveAccount upserts a billing account record, keyed by the HMAC token of
// the owning email.
func (s *Store) SaveAccount(ctx context.Context, account *status.Account) error {
	if account.Email == "" {
		return errors.New("account requires an owning email")
	}
	key := fmt.Sprintf("acct-%s.json", s.TokenFromEmail(account.Email))
	if err := s.write(ctx, key, account); err != nil {
		return err
	}
	s.logger.Info("Account saved", "email", account.Email, "plan", account.Plan, "status", account.Status)
	return nil
}

// LoadAccount loads a billing account by email.
func (s *Store) LoadAccount(ctx context.Context, email string) (*status.Account, error) {
	var account status.Account
	key := fmt.Sprintf("acct-%s.json", s.TokenFromEmail(email))
	if err := s.read(ctx, key, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ProjectsForSlug returns every project that tracks slug. This is a scan;
// the project population is small enough that an index is not worth carrying.
func (s *Store) ProjectsForSlug(ctx context.Context, slug string) ([]*status.Project, error) {
	keys, err := s.listKeys(ctx, "proj-")
	if err != nil {
		return nil, err
	}
	var projects []*status.Project
	for _, key := range keys {
		var project status.Project
		if err := s.read(ctx, key, &project); err != nil {
			s.logger.Warn("Failed to load project", "key", key, "error", err)
			continue
		}
		if project.Contains(slug) {
			projects = append(projects, &project)
		}
	}
	return projects, nil
}
