package systems

import (
	"encoding/json"
	"log"

	"github.com/automoto/herdview/config"
	"github.com/quasilyte/gdata"
)

const settingsKey = "settings"

// SavedSettings represents the viewer settings stored on disk
type SavedSettings struct {
	SourceKind   string `json:"sourceKind"`
	URL          string `json:"url"`
	Log          string `json:"log"`
	WindowWidth  int    `json:"windowWidth"`
	WindowHeight int    `json:"windowHeight"`
}

// ItemStore is the subset of *gdata.Manager the viewer uses.
type ItemStore interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
}

var settingsStore ItemStore

// InitPersistence opens the gdata store for settings
func InitPersistence(appName string) error {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		log.Printf("[viewer] could not initialize persistence: %v", err)
		return err
	}
	settingsStore = m
	return nil
}

// UseStore replaces the settings store. Passing nil disables persistence.
func UseStore(s ItemStore) {
	settingsStore = s
}

// LoadSettings loads settings from disk. It returns nil, nil when nothing is
// stored or persistence is unavailable.
func LoadSettings() (*SavedSettings, error) {
	if settingsStore == nil {
		return nil, nil
	}

	data, err := settingsStore.LoadItem(settingsKey)
	if err != nil {
		log.Printf("[viewer] could not load settings: %v", err)
		return nil, nil
	}
	if len(data) == 0 {
		return nil, nil
	}

	var settings SavedSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Printf("[viewer] could not parse saved settings: %v", err)
		return nil, err
	}
	return &settings, nil
}

// SaveSettings saves settings to disk
func SaveSettings(s *SavedSettings) error {
	if settingsStore == nil || s == nil {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := settingsStore.SaveItem(settingsKey, data); err != nil {
		log.Printf("[viewer] could not save settings: %v", err)
		return err
	}
	return nil
}

// CurrentSettings captures the settings worth restoring next run.
func CurrentSettings(windowW, windowH int) *SavedSettings {
	return &SavedSettings{
		SourceKind:   string(config.Source.Kind),
		URL:          config.Source.URL,
		Log:          config.Source.Log,
		WindowWidth:  windowW,
		WindowHeight: windowH,
	}
}

// ApplySavedSettings copies saved values into the config globals. Keys for
// which explicit reports true (set by flag, file or environment) are left
// alone.
func ApplySavedSettings(saved *SavedSettings, explicit func(key string) bool) {
	if saved == nil {
		return
	}
	if explicit == nil {
		explicit = func(string) bool { return false }
	}

	kind := config.SourceKind(saved.SourceKind)
	if (kind == config.SourceReplay || kind == config.SourceLive) && !explicit("source.kind") {
		config.Source.Kind = kind
	}
	if saved.URL != "" && !explicit("source.url") {
		config.Source.URL = saved.URL
	}
	if saved.Log != "" && !explicit("source.log") {
		config.Source.Log = saved.Log
	}
	if saved.WindowWidth > 0 && saved.WindowHeight > 0 &&
		!explicit("window.width") && !explicit("window.height") {
		config.C.Width = saved.WindowWidth
		config.C.Height = saved.WindowHeight
	}
}
