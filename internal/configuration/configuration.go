package configuration

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/siralabs/sira/internal/file"
)

var defaultConfig = Config{
	API: &APIConfig{
		BaseURL:                "http://localhost:8000",
		RequestTimeoutSeconds:  30,
		ResearchTimeoutSeconds: 180,
	},

	Chat: &ChatConfig{
		Database:                   "~/.config/sira/history.db",
		PageSize:                   50,
		StreamChunkSize:            24,
		StreamIntervalMilliseconds: 40,
	},

	Realtime: &RealtimeConfig{
		Enabled:                     true,
		RefreshDebounceMilliseconds: 1500,
	},

	Graph: &GraphConfig{
		MaxNodes: 150,
		MaxEdges: 300,
	},
}

// Config holds configuration for the sira tool.
type Config struct {
	API      *APIConfig      `json:"api"`
	Chat     *ChatConfig     `json:"chat"`
	Realtime *RealtimeConfig `json:"realtime"`
	Graph    *GraphConfig    `json:"graph"`
}

// APIConfig holds connection details for the research backend.
type APIConfig struct {
	// Base URL of the backend, e.g. http://localhost:8000.
	BaseURL string `json:"base_url"`
	// Bearer token presented on every request.
	Token string `json:"token"`
	// Opaque identifier of the signed-in user.
	UserID string `json:"user_id"`
	// Timeout applied to regular API calls.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
	// Timeout applied to the research call, which is much slower.
	ResearchTimeoutSeconds int `json:"research_timeout_seconds"`
}

// RequestTimeout applied to regular API calls.
func (c *APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ResearchTimeout applied to the research call.
func (c *APIConfig) ResearchTimeout() time.Duration {
	return time.Duration(c.ResearchTimeoutSeconds) * time.Second
}

// ChatConfig holds configuration for the chat surface.
type ChatConfig struct {
	// Path of the local history cache.
	Database string `json:"database"`
	// Page size used when fetching a conversation's messages.
	PageSize int `json:"page_size"`
	// Whether research requests ask for the deep pipeline.
	DeepResearch bool `json:"deep_research"`
	// Number of characters revealed per playback step.
	StreamChunkSize int `json:"stream_chunk_size"`
	// Delay between playback steps.
	StreamIntervalMilliseconds int `json:"stream_interval_milliseconds"`
}

// StreamInterval between playback steps.
func (c *ChatConfig) StreamInterval() time.Duration {
	return time.Duration(c.StreamIntervalMilliseconds) * time.Millisecond
}

// RealtimeConfig holds configuration for the change-notification channel.
// The debounce window absorbs backend write lag: the notification can fire
// before the write that caused it has settled.
type RealtimeConfig struct {
	Enabled bool `json:"enabled"`
	// Websocket URL. Derived from the API base URL when empty.
	URL                         string `json:"url"`
	RefreshDebounceMilliseconds int    `json:"refresh_debounce_milliseconds"`
}

// RefreshDebounce between a change hint and the reload it triggers.
func (c *RealtimeConfig) RefreshDebounce() time.Duration {
	return time.Duration(c.RefreshDebounceMilliseconds) * time.Millisecond
}

// WebsocketURL returns the configured URL, or one derived from the API
// base URL.
func (c *RealtimeConfig) WebsocketURL(apiBaseURL string) string {
	if c.URL != "" {
		return c.URL
	}
	url := strings.TrimSuffix(apiBaseURL, "/")
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return url + "/ws"
}

// GraphConfig bounds how much of a knowledge graph is rendered.
type GraphConfig struct {
	MaxNodes int `json:"max_nodes"`
	MaxEdges int `json:"max_edges"`
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	if config.API == nil {
		config.API = defaultConfig.API
	}
	if config.Chat == nil {
		config.Chat = defaultConfig.Chat
	}
	if config.Realtime == nil {
		config.Realtime = defaultConfig.Realtime
	}
	if config.Graph == nil {
		config.Graph = defaultConfig.Graph
	}

	expandedDatabasePath, err := file.ExpandPath(config.Chat.Database)
	if err != nil {
		return nil, errors.Wrap(err, "expanding database path")
	}
	config.Chat.Database = expandedDatabasePath
	if err := file.EnsureParentDirectory(config.Chat.Database); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}
	return config, nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	if err := file.EnsureParentDirectory(path); err != nil {
		return err
	}

	if err := defaultConfig.save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
