package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"contract-server/internal/metrics"
	"contract-server/internal/models"
	"contract-server/internal/storage"
)

// sessionSetFields and sessionMapFields are the fixed tables of session
// fields with a collection wire form. Set fields are stored as arrays of
// their elements (handled by models.StringSet's JSON encoding); map fields
// are stored as arrays of [key, value] pairs. The tables are explicit on
// purpose: fields are never classified by runtime type inspection.
var (
	sessionSetFields = []string{
		"kills",
		"pacifications",
		"witnesses",
		"killedTargets",
		"completedObjectives",
		"failedObjectives",
		"markedTargets",
		"recordingsDestroyed",
	}
	sessionMapFields = []string{
		"objectiveStates",
		"objectiveDefinitions",
		"challengeContexts",
	}
)

// SessionStore owns the live contract-session table and the durable
// multi-slot save/load protocol with timestamp-ordered conflict checking.
type SessionStore struct {
	backend storage.Backend
	catalog ProgressionCatalog
	logger  *zap.Logger

	mu   sync.Mutex
	live map[string]*models.ContractSession
}

// NewSessionStore creates a session store over the given backend. catalog
// resolves challenge definitions during session load.
func NewSessionStore(backend storage.Backend, catalog ProgressionCatalog, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		backend: backend,
		catalog: catalog,
		logger:  logger.Named("SessionStore"),
		live:    map[string]*models.ContractSession{},
	}
}

// RegisterSession puts a session into the live table, replacing any previous
// entry for the id.
func (s *SessionStore) RegisterSession(session *models.ContractSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[session.ID] = session
}

// GetSession is a live-table lookup; it performs no I/O.
func (s *SessionStore) GetSession(id string) (*models.ContractSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.live[id]
	return session, ok
}

// RemoveSession evicts a session from the live table (mission end or
// abandonment). Durable slot files are untouched.
func (s *SessionStore) RemoveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
}

// LiveSessionCount reports the size of the live table.
func (s *SessionStore) LiveSessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// SerializeSession converts a session to its wire form: set fields become
// arrays of elements in insertion order, map fields become arrays of
// [key, value] pairs (key-sorted for determinism), everything else passes
// through unchanged.
func SerializeSession(session *models.ContractSession) (map[string]interface{}, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to rebuild session wire form: %w", err)
	}
	for _, field := range sessionMapFields {
		obj, ok := wire[field].(map[string]interface{})
		if !ok {
			continue
		}
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]interface{}, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, []interface{}{key, obj[key]})
		}
		wire[field] = pairs
	}
	return wire, nil
}

// DeserializeSession is the inverse of SerializeSession. Only the fixed,
// known collection fields are transformed; unknown or absent fields are left
// alone.
func DeserializeSession(wire map[string]interface{}) (*models.ContractSession, error) {
	restored := make(map[string]interface{}, len(wire))
	for key, value := range wire {
		restored[key] = value
	}
	for _, field := range sessionSetFields {
		if value, ok := restored[field]; ok && value != nil {
			if _, isArray := value.([]interface{}); !isArray {
				return nil, fmt.Errorf("session field %q is not an element array", field)
			}
		}
	}
	for _, field := range sessionMapFields {
		pairs, ok := restored[field].([]interface{})
		if !ok {
			continue
		}
		obj := make(map[string]interface{}, len(pairs))
		for _, raw := range pairs {
			pair, ok := raw.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("malformed wire pair in session field %q", field)
			}
			key, ok := pair[0].(string)
			if !ok {
				return nil, fmt.Errorf("non-string key in session field %q", field)
			}
			obj[key] = pair[1]
		}
		restored[field] = obj
	}
	raw, err := json.Marshal(restored)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode session wire form: %w", err)
	}
	var session models.ContractSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Save writes a session snapshot to a named slot. The incoming timestamp
// (session.LastUpdate) must be strictly newer than the slot's existing save;
// an equal timestamp fails with ErrNothingToSave, an older one with
// ErrOutdatedSave. The previous slot file is deleted best-effort before the
// new snapshot is written, then profile.Saves[slot] is updated. The caller
// owns marking the profile dirty.
func (s *SessionStore) Save(ctx context.Context, slot, token string, session *models.ContractSession, profile *models.UserProfile) error {
	log := s.logger.With(
		zap.String("slot", slot),
		zap.String("sessionID", session.ID),
		zap.String("profileID", profile.ID),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := profile.Extensions.Saves[slot]; ok {
		delta := session.LastUpdate - prev.Timestamp
		if delta == 0 {
			log.Warn("Rejecting save: nothing updated since last snapshot")
			metrics.SessionSaves.WithLabelValues("conflict").Inc()
			return models.ErrNothingToSave
		}
		if delta < 0 {
			log.Warn("Rejecting outdated save",
				zap.Int64("incoming", session.LastUpdate),
				zap.Int64("existing", prev.Timestamp))
			metrics.SessionSaves.WithLabelValues("conflict").Inc()
			return models.ErrOutdatedSave
		}
		prevPath := storage.SessionPath(slot, prev.Token, prev.ContractSessionID)
		if err := s.backend.Remove(ctx, prevPath); err != nil && !errors.Is(err, storage.ErrNotExist) {
			// Best-effort: a stale file only wastes space, it can never be
			// matched again once the profile record moves on.
			log.Warn("Failed to delete previous save file", zap.String("path", prevPath), zap.Error(err))
		}
	}

	wire, err := SerializeSession(session)
	if err != nil {
		metrics.SessionSaves.WithLabelValues("failed").Inc()
		return err
	}
	data, err := json.Marshal(wire)
	if err != nil {
		metrics.SessionSaves.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	if err := s.backend.MkdirAll(ctx, storage.SessionsDir); err != nil {
		metrics.SessionSaves.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to ensure sessions directory: %w", err)
	}
	path := storage.SessionPath(slot, token, session.ID)
	if err := s.backend.WriteFile(ctx, path, data); err != nil {
		log.Error("Failed to write session snapshot", zap.String("path", path), zap.Error(err))
		metrics.SessionSaves.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}

	profile.Extensions.Saves[slot] = models.SaveRecord{
		Timestamp:         session.LastUpdate,
		ContractSessionID: session.ID,
		Token:             token,
	}
	metrics.SessionSaves.WithLabelValues("ok").Inc()
	log.Info("Session snapshot saved", zap.Int64("timestamp", session.LastUpdate))
	return nil
}

// Load reconstructs a session by id and token. When explicit wire data is
// supplied the durable lookup is skipped entirely. A durable miss falls back
// to the live session table; only when both miss does the original
// ErrSessionNotFound surface. Challenge contexts referenced by the session
// are reconciled against the profile and the progression catalog before the
// session is registered into the live table.
func (s *SessionStore) Load(ctx context.Context, sessionID, token string, profile *models.UserProfile, explicit map[string]interface{}) (*models.ContractSession, error) {
	log := s.logger.With(
		zap.String("sessionID", sessionID),
		zap.String("profileID", profile.ID),
	)

	var session *models.ContractSession
	switch {
	case explicit != nil:
		restored, err := DeserializeSession(explicit)
		if err != nil {
			return nil, err
		}
		session = restored
	default:
		restored, err := s.loadDurable(ctx, sessionID, token)
		if err != nil {
			if live, ok := s.GetSession(sessionID); ok {
				log.Info("Durable save not found, recovered session from live table")
				metrics.SessionLoads.WithLabelValues("memory").Inc()
				session = live
			} else {
				metrics.SessionLoads.WithLabelValues("miss").Inc()
				return nil, err
			}
		} else {
			metrics.SessionLoads.WithLabelValues("durable").Inc()
			session = restored
		}
	}

	if err := s.seedChallengeContexts(session, profile, log); err != nil {
		return nil, err
	}

	s.RegisterSession(session)
	log.Info("Session loaded and registered")
	return session, nil
}

// loadDurable locates a snapshot by filename suffix under the sessions
// directory.
func (s *SessionStore) loadDurable(ctx context.Context, sessionID, token string) (*models.ContractSession, error) {
	names, err := s.backend.ReadDir(ctx, storage.SessionsDir)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list session snapshots: %w", err)
	}

	suffix := storage.SessionSuffix(token, sessionID)
	var match string
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			match = name
			break
		}
	}
	if match == "" {
		return nil, models.ErrSessionNotFound
	}

	data, err := s.backend.ReadFile(ctx, storage.SessionsDir+"/"+match)
	if err != nil {
		return nil, fmt.Errorf("failed to read session snapshot %s: %w", match, err)
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot %s: %w", match, err)
	}
	return DeserializeSession(wire)
}

// seedChallengeContexts reconciles the session's challenge contexts with the
// owning profile: missing progression records default to a Start state, and
// challenge types that persist progress across sessions resume from the
// profile's saved state. An unresolvable challenge id is fatal: the save
// references a catalog entry this version does not carry.
func (s *SessionStore) seedChallengeContexts(session *models.ContractSession, profile *models.UserProfile, log *zap.Logger) error {
	for challengeID, sessionCtx := range session.ChallengeContexts {
		progression, ok := profile.Extensions.ChallengeProgression[challengeID]
		if !ok {
			progression = models.ChallengeProgression{
				CurrentState: "Start",
				State:        map[string]interface{}{},
				Completed:    false,
				Ticked:       false,
			}
			profile.Extensions.ChallengeProgression[challengeID] = progression
		}

		definition := s.catalog.GetChallengeDefinition(challengeID)
		if definition == nil {
			log.Error("Saved session references unregistered challenge",
				zap.String("challengeID", challengeID))
			return fmt.Errorf("%w: %s", models.ErrChallengeUnregistered, challengeID)
		}

		if !progression.Completed && definition.PersistsProgress() {
			seeded := make(map[string]interface{}, len(progression.State))
			for key, value := range progression.State {
				seeded[key] = value
			}
			sessionCtx.Context = seeded
			session.ChallengeContexts[challengeID] = sessionCtx
		}
	}
	return nil
}
