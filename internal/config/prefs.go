package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Preferences are the form values remembered between runs
type Preferences struct {
	Name      string `mapstructure:"name" json:"name"`
	ID        string `mapstructure:"id" json:"id"`
	Gender    string `mapstructure:"gender" json:"gender"`
	OutputDir string `mapstructure:"output_folder" json:"output_folder"`
}

// PrefsStore reads and writes Preferences as a JSON file
type PrefsStore struct {
	path string
}

// NewPrefsStore creates a store backed by path. A relative path is resolved
// against the working directory at call time.
func NewPrefsStore(path string) *PrefsStore {
	if path == "" {
		path = DefaultPrefsFile
	}
	return &PrefsStore{path: path}
}

// Path returns the backing file path
func (s *PrefsStore) Path() string {
	return s.path
}

func (s *PrefsStore) viper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	return v
}

// Load returns the saved preferences. A missing file yields empty
// preferences and no error.
func (s *PrefsStore) Load() (Preferences, error) {
	var prefs Preferences

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return prefs, nil
	}

	v := s.viper()
	if err := v.ReadInConfig(); err != nil {
		return prefs, fmt.Errorf("cannot read preferences %s: %w", s.path, err)
	}
	if err := v.Unmarshal(&prefs); err != nil {
		return prefs, fmt.Errorf("cannot decode preferences %s: %w", s.path, err)
	}
	return prefs, nil
}

// Save replaces the stored preferences
func (s *PrefsStore) Save(prefs Preferences) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create preferences directory: %w", err)
		}
	}

	v := s.viper()
	v.Set("name", prefs.Name)
	v.Set("id", prefs.ID)
	v.Set("gender", prefs.Gender)
	v.Set("output_folder", prefs.OutputDir)

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("cannot write preferences %s: %w", s.path, err)
	}
	return nil
}
