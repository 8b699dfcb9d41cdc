// Package config persists user settings in config.json and loads capture layouts.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"jordanella.com/noruhunter-go/internal/logging"
)

// DefaultFileName is the settings file created in the working directory
const DefaultFileName = "config.json"

// Setting keys. Nested keys use dotted paths.
const (
	KeyWindowTitle    = "window_title"
	KeyMaxScrolls     = "max_scrolls"
	KeyScrollRepeat   = "scroll_repeat"
	KeyContribLimit   = "contrib_limit"
	KeyDustPointLimit = "dust_point_limit"
	KeyDustStartDate  = "dust_start_date"
	KeyClovaAPI       = "clova_api"
	KeyClovaSecret    = "clova_api.x_ocr_secret"
	KeyClovaURL       = "clova_api.api_url"
	KeyOutputDir      = "output_dir"
	KeyOCRBackend     = "ocr_backend"
	KeyLogLevel       = "log_level"
)

// DefaultDustStartDate is the placeholder start date; dust extraction refuses to run until it is changed.
const DefaultDustStartDate = "2025-01-01"

// Defaults returns the settings written to a fresh config.json
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		KeyWindowTitle:    "EXILIUM",
		KeyMaxScrolls:     20,
		KeyScrollRepeat:   25,
		KeyContribLimit:   270,
		KeyDustPointLimit: 1600,
		KeyDustStartDate:  DefaultDustStartDate,
		KeyClovaAPI: map[string]interface{}{
			"x_ocr_secret": "",
			"api_url":      "",
		},
		KeyOutputDir:  "output",
		KeyOCRBackend: "clova",
		KeyLogLevel:   "INFO",
	}
}

// envOverrides maps environment variables to the setting they shadow.
var envOverrides = map[string]string{
	"CLOVA_API_URL":      KeyClovaURL,
	"CLOVA_X_OCR_SECRET": KeyClovaSecret,
}

// Settings is a typed snapshot of the store
type Settings struct {
	WindowTitle    string   `mapstructure:"window_title"`
	MaxScrolls     int      `mapstructure:"max_scrolls"`
	ScrollRepeat   int      `mapstructure:"scroll_repeat"`
	ContribLimit   int      `mapstructure:"contrib_limit"`
	DustPointLimit int      `mapstructure:"dust_point_limit"`
	DustStartDate  string   `mapstructure:"dust_start_date"`
	ClovaAPI       ClovaAPI `mapstructure:"clova_api"`
	OutputDir      string   `mapstructure:"output_dir"`
	OCRBackend     string   `mapstructure:"ocr_backend"`
	LogLevel       string   `mapstructure:"log_level"`
}

// ClovaAPI holds the OCR credentials
type ClovaAPI struct {
	Secret string `mapstructure:"x_ocr_secret"`
	URL    string `mapstructure:"api_url"`
}

// Store is a key-path settings store backed by a JSON file. Set persists immediately.
// Reads go through viper; the file itself is rewritten from the raw document so keys unknown
// to the program keep their exact spelling.
type Store struct {
	mu        sync.RWMutex
	v         *viper.Viper
	doc       map[string]interface{}
	path      string
	overrides map[string]string
	logger    *logging.Logger
	onChange  []func(path string)
}

// Load reads path, merging defaults under it. A missing file is created from defaults.
// envFiles are optional .env files that may supply CLOVA_API_URL and CLOVA_X_OCR_SECRET.
func Load(path string, logger *logging.Logger, envFiles ...string) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Store{
		path:   path,
		logger: logger,
	}
	if err := s.Reload(envFiles...); err != nil {
		return nil, err
	}
	return s, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	for key, value := range Defaults() {
		if nested, ok := value.(map[string]interface{}); ok {
			for sub, subValue := range nested {
				v.SetDefault(key+"."+sub, subValue)
			}
			continue
		}
		v.SetDefault(key, value)
	}
	return v
}

// Reload re-reads the settings file and the .env overrides.
func (s *Store) Reload(envFiles ...string) error {
	v := newViper(s.path)

	var doc map[string]interface{}
	raw, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if doc, err = decodeDocument(raw); err != nil {
			return fmt.Errorf("failed to read config %s: %w", s.path, err)
		}
		if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
			return fmt.Errorf("failed to read config %s: %w", s.path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		s.logger.Warnf("%s not found, writing default settings", s.path)
		doc = map[string]interface{}{}
		mergeDefaults(doc, Defaults())
		if err := writeDocument(doc, s.path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to read config: %w", err)
	}
	mergeDefaults(doc, Defaults())

	overrides := readOverrides(envFiles)
	for env := range overrides {
		s.logger.Infof("Using %s from environment", env)
	}

	s.mu.Lock()
	s.v = v
	s.doc = doc
	s.overrides = overrides
	s.mu.Unlock()
	return nil
}

func decodeDocument(raw []byte) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// mergeDefaults adds every default missing from doc, descending into nested objects.
func mergeDefaults(doc, defaults map[string]interface{}) {
	for key, def := range defaults {
		existing, ok := doc[key]
		if !ok {
			if nested, isMap := def.(map[string]interface{}); isMap {
				child := map[string]interface{}{}
				mergeDefaults(child, nested)
				doc[key] = child
				continue
			}
			doc[key] = def
			continue
		}
		if nested, isMap := def.(map[string]interface{}); isMap {
			if child, isChild := existing.(map[string]interface{}); isChild {
				mergeDefaults(child, nested)
			}
		}
	}
}

// setPath stores value at a dotted path, reusing the file's spelling of existing keys.
func setPath(doc map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	m := doc
	for _, part := range parts[:len(parts)-1] {
		key := documentKey(m, part)
		child, ok := m[key].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			m[key] = child
		}
		m = child
	}
	m[documentKey(m, parts[len(parts)-1])] = value
}

func documentKey(m map[string]interface{}, key string) string {
	if _, ok := m[key]; ok {
		return key
	}
	for k := range m {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}

// readOverrides collects override values from .env files, then from the process environment.
func readOverrides(envFiles []string) map[string]string {
	values := map[string]string{}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		parsed, err := godotenv.Read(f)
		if err != nil {
			continue
		}
		for env := range envOverrides {
			if v := strings.TrimSpace(parsed[env]); v != "" {
				values[env] = v
			}
		}
	}
	for env := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			values[env] = v
		}
	}
	return values
}

func writeDocument(doc map[string]interface{}, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Path returns the settings file path
func (s *Store) Path() string { return s.path }

// OnChange registers a callback invoked after every successful Set.
func (s *Store) OnChange(fn func(path string)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

func (s *Store) override(path string) (string, bool) {
	for env, key := range envOverrides {
		if key == path {
			v, ok := s.overrides[env]
			return v, ok
		}
	}
	return "", false
}

// Overridden names the environment variable currently shadowing path, if any.
func (s *Store) Overridden(path string) (env string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for env, key := range envOverrides {
		if key != path {
			continue
		}
		if _, ok := s.overrides[env]; ok {
			return env, true
		}
	}
	return "", false
}

// Get returns the value at a dotted key path, or def when the path is unset.
func (s *Store) Get(path string, def interface{}) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.override(path); ok {
		return v
	}
	if !s.v.IsSet(path) {
		return def
	}
	value := s.v.Get(path)
	if value == nil {
		return def
	}
	return value
}

// GetString returns the value at path as a string
func (s *Store) GetString(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.override(path); ok {
		return v
	}
	return s.v.GetString(path)
}

// GetInt returns the value at path as an int
func (s *Store) GetInt(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt(path)
}

// Set stores value at path and writes the file. An environment override of path, or of a
// key below it, is dropped for the rest of the session so the stored value takes effect.
func (s *Store) Set(path string, value interface{}) error {
	s.mu.Lock()
	s.v.Set(path, value)
	setPath(s.doc, path, value)
	err := writeDocument(s.doc, s.path)
	var cleared []string
	for env, key := range envOverrides {
		if key != path && !strings.HasPrefix(key, path+".") {
			continue
		}
		if _, ok := s.overrides[env]; ok {
			delete(s.overrides, env)
			cleared = append(cleared, env)
		}
	}
	callbacks := append([]func(string){}, s.onChange...)
	s.mu.Unlock()

	for _, env := range cleared {
		s.logger.Warnf("%s no longer overrides %s until restart", env, path)
	}
	if err != nil {
		return err
	}
	s.logger.DebugWithContext("Setting saved", map[string]interface{}{"path": path})
	for _, fn := range callbacks {
		fn(path)
	}
	return nil
}

// Snapshot decodes every setting, overrides applied, into Settings.
func (s *Store) Snapshot() (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out Settings
	if err := s.v.Unmarshal(&out); err != nil {
		return out, fmt.Errorf("failed to decode settings: %w", err)
	}
	if v, ok := s.override(KeyClovaURL); ok {
		out.ClovaAPI.URL = v
	}
	if v, ok := s.override(KeyClovaSecret); ok {
		out.ClovaAPI.Secret = v
	}
	return out, nil
}

// OCRConfigured reports whether both CLOVA credentials are present.
func (s Settings) OCRConfigured() bool {
	return strings.TrimSpace(s.ClovaAPI.URL) != "" && strings.TrimSpace(s.ClovaAPI.Secret) != ""
}
