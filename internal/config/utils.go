// internal/config/utils.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

var configFileNames = []string{"config.yaml", "config.yml", "kvkeeper.yaml", "kvkeeper.yml"}

func isConfigFile(path string) bool {
	fileName := filepath.Base(path)
	for _, name := range configFileNames {
		if fileName == name {
			return true
		}
	}
	return false
}

// resolveConfigFilePath returns configPath if it is a file, or the first known
// config file inside it if it is a directory. A directory with no config file
// yields "".
func resolveConfigFilePath(configPath string) (string, error) {
	fileInfo, err := os.Stat(configPath)
	if err != nil {
		return "", fmt.Errorf("config path %s: %w", configPath, err)
	}

	if !fileInfo.IsDir() {
		return configPath, nil
	}

	for _, name := range configFileNames {
		candidate := filepath.Join(configPath, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() && isConfigFile(candidate) {
			return candidate, nil
		}
	}

	return "", nil
}
