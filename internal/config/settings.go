package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings holds the integration configuration that administrators can change
// at runtime. It is persisted to a JSON file so values survive restarts.
// Environment variables seed a value on first load; the file fills in the rest.
type Settings struct {
	LidarrAddress          string  `json:"lidarr_address"`
	LidarrAPIKey           string  `json:"lidarr_api_key"`
	LidarrTimeoutSeconds   float64 `json:"lidarr_api_timeout"`
	RootFolderPath         string  `json:"root_folder_path"`
	QualityProfileID       int     `json:"quality_profile_id"`
	MetadataProfileID      int     `json:"metadata_profile_id"`
	FallbackToTopResult    bool    `json:"fallback_to_top_result"`
	SearchForMissingAlbums bool    `json:"search_for_missing_albums"`
	DryRunAdding           bool    `json:"dry_run_adding"`

	LastFMAPIKey    string `json:"last_fm_api_key"`
	LastFMAPISecret string `json:"last_fm_api_secret"`
	YouTubeAPIKey   string `json:"youtube_api_key"`

	OpenAIAPIKey         string `json:"openai_api_key"`
	OpenAIModel          string `json:"openai_model"`
	OpenAIMaxSeedArtists int    `json:"openai_max_seed_artists"`

	BatchSize int `json:"batch_size"`
}

func defaultSettings() Settings {
	return Settings{
		LidarrAddress:        "http://127.0.0.1:8686",
		LidarrTimeoutSeconds: 120,
		RootFolderPath:       "/data/media/music/",
		QualityProfileID:     1,
		MetadataProfileID:    1,
		OpenAIMaxSeedArtists: 5,
		BatchSize:            10,
	}
}

// normalize clamps values that would break discovery if set out of range.
func (s *Settings) normalize() {
	if s.BatchSize < 1 {
		s.BatchSize = defaultSettings().BatchSize
	}
	if s.OpenAIMaxSeedArtists < 1 {
		s.OpenAIMaxSeedArtists = defaultSettings().OpenAIMaxSeedArtists
	}
	if s.LidarrTimeoutSeconds < 1 {
		s.LidarrTimeoutSeconds = defaultSettings().LidarrTimeoutSeconds
	}
	if s.QualityProfileID < 1 {
		s.QualityProfileID = 1
	}
	if s.MetadataProfileID < 1 {
		s.MetadataProfileID = 1
	}
}

// SettingsManager owns the settings file: loading at startup, handing out
// consistent snapshots, and applying admin edits with an atomic rewrite.
type SettingsManager struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// NewSettingsManager creates a manager for the given settings file path.
// Call Load before first use.
func NewSettingsManager(path string) *SettingsManager {
	return &SettingsManager{path: path, settings: defaultSettings()}
}

// Load merges, in order of precedence: environment variables, the settings
// file, and defaults. The merged result is written back so the file is always
// complete.
func (m *SettingsManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := defaultSettings()

	if data, err := os.ReadFile(m.path); err == nil {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parsing %s: %w", m.path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", m.path, err)
	}

	applyEnvOverrides(&s)
	s.normalize()
	m.settings = s

	return m.saveLocked()
}

// Get returns a copy of the current settings.
func (m *SettingsManager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Update applies fn to a copy of the settings, persists the result atomically,
// and makes it visible to subsequent Get calls.
func (m *SettingsManager) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.settings
	fn(&s)
	s.normalize()
	m.settings = s

	return m.saveLocked()
}

// saveLocked writes the settings file via temp-file + rename so readers never
// observe a partial file. Caller must hold m.mu.
func (m *SettingsManager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m.settings); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions on settings file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing settings file: %w", err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}

// applyEnvOverrides lets environment variables win over the file, mirroring
// the precedence used for startup configuration.
func applyEnvOverrides(s *Settings) {
	s.LidarrAddress = getEnv("LIDARR_ADDRESS", s.LidarrAddress)
	s.LidarrAPIKey = getEnv("LIDARR_API_KEY", s.LidarrAPIKey)
	s.RootFolderPath = getEnv("ROOT_FOLDER_PATH", s.RootFolderPath)
	s.QualityProfileID = getIntEnv("QUALITY_PROFILE_ID", s.QualityProfileID)
	s.MetadataProfileID = getIntEnv("METADATA_PROFILE_ID", s.MetadataProfileID)
	s.FallbackToTopResult = getBoolEnv("FALLBACK_TO_TOP_RESULT", s.FallbackToTopResult)
	s.SearchForMissingAlbums = getBoolEnv("SEARCH_FOR_MISSING_ALBUMS", s.SearchForMissingAlbums)
	s.DryRunAdding = getBoolEnv("DRY_RUN_ADDING", s.DryRunAdding)
	s.LastFMAPIKey = getEnv("LAST_FM_API_KEY", s.LastFMAPIKey)
	s.LastFMAPISecret = getEnv("LAST_FM_API_SECRET", s.LastFMAPISecret)
	s.YouTubeAPIKey = getEnv("YOUTUBE_API_KEY", s.YouTubeAPIKey)
	s.OpenAIAPIKey = getEnv("OPENAI_API_KEY", s.OpenAIAPIKey)
	s.OpenAIModel = getEnv("OPENAI_MODEL", s.OpenAIModel)
	s.OpenAIMaxSeedArtists = getIntEnv("OPENAI_MAX_SEED_ARTISTS", s.OpenAIMaxSeedArtists)
	s.BatchSize = getIntEnv("BATCH_SIZE", s.BatchSize)
}
