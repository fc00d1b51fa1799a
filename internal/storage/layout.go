package storage

import (
	"fmt"
	"path"
	"strings"
)

// Layout maps logical records to storage paths. The shapes below are a
// compatibility contract with existing on-disk data and must not change:
//
//	userdata[/<gameVersion>]/users/<userId>.json
//	userdata[/<gameVersion>]/<provider>/<userId>.json
//	contractSessions/<slot>_<token>_<sessionId>.json
//
// An empty GameVersion selects the unversioned layout.
type Layout struct {
	GameVersion string
}

// UserDataDir returns the root of per-user records.
func (l Layout) UserDataDir() string {
	if l.GameVersion == "" {
		return "userdata"
	}
	return path.Join("userdata", l.GameVersion)
}

// ProfilePath returns the durable path of a user profile.
func (l Layout) ProfilePath(userID string) string {
	return path.Join(l.UserDataDir(), "users", userID+".json")
}

// PlatformLinkPath returns the durable path of an external platform-id link.
func (l Layout) PlatformLinkPath(provider, platformUserID string) string {
	return path.Join(l.UserDataDir(), provider, platformUserID+".json")
}

// SessionsDir is the directory holding contract-session snapshots. It is
// shared across game versions.
const SessionsDir = "contractSessions"

// SessionPath returns the durable path of a contract-session snapshot.
func SessionPath(slot, token, sessionID string) string {
	return path.Join(SessionsDir, fmt.Sprintf("%s_%s_%s.json", slot, token, sessionID))
}

// SessionSuffix returns the filename suffix used to locate a snapshot when
// the slot is unknown.
func SessionSuffix(token, sessionID string) string {
	return fmt.Sprintf("_%s_%s.json", token, sessionID)
}

// SlotFromSessionFile extracts the slot component from a snapshot filename
// matched by suffix. Returns "" if the name does not carry one.
func SlotFromSessionFile(name, token, sessionID string) string {
	suffix := SessionSuffix(token, sessionID)
	if !strings.HasSuffix(name, suffix) {
		return ""
	}
	return strings.TrimSuffix(name, suffix)
}
