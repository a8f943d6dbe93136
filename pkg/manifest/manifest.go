// Package manifest persists the durable metadata describing one recorded
// session: identity, capture settings, artifact locations, and outcome.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcadelab/sessiontape/pkg/config"
	"github.com/arcadelab/sessiontape/pkg/session"
)

// SchemaVersion captures the manifest version for compatibility checks.
const SchemaVersion = 1

// Session lifecycle states recorded for downstream tooling.
const (
	StatePending   = "pending"
	StateRecording = "recording"
	StateCompleted = "completed"
	StateErrored   = "error"
)

// Artifacts holds the artifact file names relative to the session directory.
type Artifacts struct {
	Video  string `json:"video"`
	Events string `json:"events"`
	Frames string `json:"frames"`
}

// CaptureSettings records the capture parameters the session ran with.
type CaptureSettings struct {
	Region    config.RegionConfig `json:"region"`
	FrameRate float64             `json:"frame_rate"`
	Format    string              `json:"format"`
}

// Outcome summarises what the session produced.
type Outcome struct {
	State            string     `json:"state"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	FramesWritten    int64      `json:"frames_written"`
	FightsMarked     int        `json:"fights_marked"`
	FightTimeSeconds float64    `json:"fight_time_seconds"`
	Message          string     `json:"message,omitempty"`
}

// Manifest is the durable metadata describing a recorded session.
type Manifest struct {
	SchemaVersion int             `json:"schema_version"`
	SessionID     string          `json:"session_id"`
	Name          string          `json:"name"`
	CreatedAt     time.Time       `json:"created_at"`
	Hostname      string          `json:"hostname"`
	AppVersion    string          `json:"app_version"`
	ConfigSource  string          `json:"config_source"`
	Capture       CaptureSettings `json:"capture"`
	Artifacts     Artifacts       `json:"artifacts"`
	Outcome       Outcome         `json:"outcome"`
}

// Options captures the knobs for creating a new manifest.
type Options struct {
	Name       string
	CreatedAt  time.Time
	Hostname   string
	AppVersion string
	Config     config.Config
}

// New constructs a manifest for a session about to start.
func New(opts Options) Manifest {
	paths := session.DerivePaths("", opts.Name, opts.Config.Capture.Format)
	return Manifest{
		SchemaVersion: SchemaVersion,
		SessionID:     uuid.NewString(),
		Name:          opts.Name,
		CreatedAt:     opts.CreatedAt.UTC(),
		Hostname:      opts.Hostname,
		AppVersion:    opts.AppVersion,
		ConfigSource:  opts.Config.Source,
		Capture: CaptureSettings{
			Region:    opts.Config.Capture.Region,
			FrameRate: opts.Config.Capture.FrameRate,
			Format:    opts.Config.Capture.Format,
		},
		Artifacts: Artifacts{
			Video:  paths.Video,
			Events: paths.Events,
			Frames: paths.Frames,
		},
		Outcome: Outcome{State: StatePending},
	}
}

// Path returns the manifest location for a session inside its directory.
func Path(sessionsDir, name string) string {
	return filepath.Join(sessionsDir, name+"_manifest.json")
}

// Save writes the manifest JSON to disk with indentation for readability.
func Save(man Manifest, path string) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest JSON file from disk.
func Load(path string) (Manifest, error) {
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("decode manifest: %w", err)
	}
	return man, nil
}

// ResolveName chooses a session name derived from the timestamp and avoids
// collisions with sessions already on disk.
func ResolveName(sessionsDir string, now time.Time) (string, error) {
	if strings.TrimSpace(sessionsDir) == "" {
		return "", errors.New("sessions directory must not be empty")
	}

	base := now.UTC().Format("20060102_150405")
	candidate := base
	suffix := 1
	for {
		_, err := os.Stat(Path(sessionsDir, candidate))
		if err == nil {
			candidate = fmt.Sprintf("%s_%02d", base, suffix)
			suffix++
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		return "", fmt.Errorf("inspect sessions directory: %w", err)
	}
}
