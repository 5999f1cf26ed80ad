package state

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"steward/internal/api"
	"steward/internal/config"
	"steward/pkg/logging"
)

// stateDirPrefix is the entity-type prefix state records are stored under;
// the environment name is appended so each environment gets its own
// directory.
const stateDirPrefix = "state/"

// Store persists the last known resource identity and metadata for running
// service instances, one record per ServiceIdentity. There is no history:
// Save replaces, Clear removes.
type Store struct {
	storage *config.Storage
}

// NewStore creates a Store backed by the given storage root.
func NewStore(storage *config.Storage) *Store {
	return &Store{storage: storage}
}

// Dir returns the directory state records for an environment live in. The
// watcher uses it to observe out-of-band edits.
func (s *Store) Dir(environment string) string {
	return s.storage.EntityDir(stateDirPrefix + environment)
}

// Save writes the state record for the identity, stamping the schema version
// and identity metadata so records are self-describing.
func (s *Store) Save(identity api.ServiceIdentity, st *api.ServiceState) error {
	if st == nil {
		return fmt.Errorf("cannot save nil state for %s", identity.Key())
	}
	st.Version = api.StateSchemaVersion
	st.Identity = api.ServiceMeta{
		Service:     identity.Service,
		Environment: identity.Environment,
		Platform:    identity.Platform,
	}
	if st.StartTime.IsZero() {
		st.StartTime = time.Now().UTC()
	}
	if err := st.Resources.Validate(); err != nil {
		return fmt.Errorf("refusing to save state for %s: %w", identity.Key(), err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state for %s: %w", identity.Key(), err)
	}
	if err := s.storage.Save(stateDirPrefix+identity.Environment, identity.Service, data); err != nil {
		return err
	}
	logging.Debug("StateStore", "Saved state for %s (%s)", identity.Key(), st.Resources.Describe())
	return nil
}

// Load returns the persisted record for the identity, or a NotFoundError
// when none exists.
func (s *Store) Load(identity api.ServiceIdentity) (*api.ServiceState, error) {
	data, err := s.storage.Load(stateDirPrefix+identity.Environment, identity.Service)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, api.NewNotFoundError("state", identity.Key())
		}
		return nil, err
	}

	var st api.ServiceState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state for %s: %w", identity.Key(), err)
	}
	return &st, nil
}

// Clear removes the persisted record for the identity. Clearing an absent
// record is not an error.
func (s *Store) Clear(identity api.ServiceIdentity) error {
	if err := s.storage.Delete(stateDirPrefix+identity.Environment, identity.Service); err != nil {
		return err
	}
	logging.Debug("StateStore", "Cleared state for %s", identity.Key())
	return nil
}

// List returns the service names that have persisted state in an environment.
func (s *Store) List(environment string) ([]string, error) {
	return s.storage.List(stateDirPrefix + environment)
}
