// internal/config/watcher.go
package config

import (
	"github.com/fsnotify/fsnotify"
)

// watch reloads Settings whenever the config file is written
func (cl *ConfigLoader) watch() {
	cl.v.OnConfigChange(cl.handleFileModification)
	cl.v.WatchConfig()
}

func (cl *ConfigLoader) handleFileModification(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	settings, err := cl.load()
	if err != nil {
		cl.handleError(err)
		return
	}
	cl.updateConfig(settings)
}

func (cl *ConfigLoader) handleError(err error) {
	cl.mu.Lock()
	cl.lastError = err
	logger := cl.logger
	cl.mu.Unlock()

	logger.Errorw("config reload failed", "file", cl.configFile, "error", err)
}

func (cl *ConfigLoader) updateConfig(settings *Settings) {
	cl.mu.Lock()
	cl.currentConfig = settings
	cl.lastError = nil
	logger := cl.logger
	watchers := append([]func(*Settings){}, cl.watchers...)
	cl.mu.Unlock()

	logger.Infow("config reloaded", "file", cl.configFile)
	for _, watcher := range watchers {
		watcher(settings)
	}
}
