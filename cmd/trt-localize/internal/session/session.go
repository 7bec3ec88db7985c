package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/faultloc/cmd/trt-localize/internal/ui"
)

// Status values of a session.
const (
	StatusInitialized = "initialized"
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Session represents a persistent localization session
type Session struct {
	ID                string        `json:"id"`
	ModelPath         string        `json:"model_path"`
	ModelName         string        `json:"model_name"`
	Command           string        `json:"command"`
	Timeout           time.Duration `json:"timeout"`
	ExceptionExitCode int           `json:"exception_exit_code,omitempty"`
	DatabasePath      string        `json:"database_path"`
	Status            string        `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	Executions        int           `json:"executions"`
	CacheHits         int           `json:"cache_hits"`
	Rounds            int           `json:"rounds"`
	Confirmed         []ui.Finding  `json:"confirmed,omitempty"`
	Discarded         int           `json:"discarded"`
	Error             string        `json:"error,omitempty"`
}

const (
	sessionDir  = ".trt-localize"
	sessionFile = "session.json"
)

// GetSessionDir returns the session directory under dir
func GetSessionDir(dir string) string {
	return filepath.Join(dir, sessionDir)
}

// GetSessionPath returns the path to the session file
func GetSessionPath(dir string) string {
	return filepath.Join(GetSessionDir(dir), sessionFile)
}

// DefaultDatabasePath returns the result cache location used when none is
// given.
func DefaultDatabasePath(dir string) string {
	return filepath.Join(GetSessionDir(dir), "faultloc.db")
}

// Load loads the session from disk
func Load(dir string) (*Session, error) {
	path := GetSessionPath(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no active session found (use 'trt-localize run' to begin)")
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	return &session, nil
}

// Save saves the session to disk
func (s *Session) Save(dir string) error {
	s.UpdatedAt = time.Now()

	if err := os.MkdirAll(GetSessionDir(dir), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(GetSessionPath(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

// Delete removes the session from disk
func Delete(dir string) error {
	if err := os.RemoveAll(GetSessionDir(dir)); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove session: %w", err)
		}
	}
	return nil
}

// Exists checks if a session exists
func Exists(dir string) bool {
	_, err := os.Stat(GetSessionPath(dir))
	return err == nil
}

// New creates a new session
func New(id, modelPath, modelName, command, databasePath string, timeout time.Duration, exceptionExitCode int) *Session {
	now := time.Now()
	return &Session{
		ID:                id,
		ModelPath:         modelPath,
		ModelName:         modelName,
		Command:           command,
		Timeout:           timeout,
		ExceptionExitCode: exceptionExitCode,
		DatabasePath:      databasePath,
		Status:            StatusInitialized,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
