package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"steward/pkg/logging"
)

// Storage provides generic file storage for steward's persisted entities
// (environment files, service state records) under a single root directory.
type Storage struct {
	mu         sync.RWMutex
	configPath string // custom root; empty means the default project directory
}

// DefaultDirName is the project-local directory steward keeps its files in.
const DefaultDirName = ".steward"

// NewStorage creates a Storage rooted at the default directory inside the
// given project root.
func NewStorage(projectRoot string) *Storage {
	return &Storage{configPath: filepath.Join(projectRoot, DefaultDirName)}
}

// NewStorageWithPath creates a Storage with a custom root path.
func NewStorageWithPath(configPath string) *Storage {
	return &Storage{configPath: configPath}
}

// Root returns the storage root directory.
func (ds *Storage) Root() string {
	return ds.configPath
}

// EntityDir returns the directory a given entity type is stored in.
func (ds *Storage) EntityDir(entityType string) string {
	return filepath.Join(ds.configPath, entityType)
}

// Save stores data for the given entity type and name.
// entityType: subdirectory name (environments, state/<env>)
// name: filename without extension
func (ds *Storage) Save(entityType string, name string, data []byte) error {
	if entityType == "" {
		return fmt.Errorf("entityType cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	targetDir := ds.EntityDir(entityType)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	filePath := filepath.Join(targetDir, sanitizeFilename(name)+".yaml")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Saved %s/%s to %s", entityType, name, filePath)
	return nil
}

// Load retrieves data for the given entity type and name. Returns
// os.ErrNotExist (wrapped) when the file does not exist.
func (ds *Storage) Load(entityType string, name string) ([]byte, error) {
	if entityType == "" {
		return nil, fmt.Errorf("entityType cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	filePath := filepath.Join(ds.EntityDir(entityType), sanitizeFilename(name)+".yaml")
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", entityType, name, err)
	}
	return data, nil
}

// Delete removes the stored file for the given entity type and name. Deleting
// a file that does not exist is not an error.
func (ds *Storage) Delete(entityType string, name string) error {
	if entityType == "" {
		return fmt.Errorf("entityType cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	filePath := filepath.Join(ds.EntityDir(entityType), sanitizeFilename(name)+".yaml")
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Deleted %s/%s", entityType, name)
	return nil
}

// List returns the names (without extension) of every stored entity of the
// given type, in directory order.
func (ds *Storage) List(entityType string) ([]string, error) {
	if entityType == "" {
		return nil, fmt.Errorf("entityType cannot be empty")
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	entries, err := os.ReadDir(ds.EntityDir(entityType))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".yaml"))
	}
	return names, nil
}

// sanitizeFilename strips path separators so entity names cannot escape the
// storage directory.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "-")
	name = strings.ReplaceAll(name, "..", "-")
	return name
}
