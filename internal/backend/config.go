package backend

import (
	"fmt"

	"seguros/internal/config"
)

// FromAppConfig converts the application config to backend config for the
// configured DATA_SOURCE.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	return ForSource(appConfig, appConfig.DataSource)
}

// ForSource converts the application config to backend config for an
// explicit source name.
func ForSource(appConfig *config.Config, name string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(name)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", name)
	}

	return Config{
		Type: backendType,

		DataDirectory: appConfig.LocalDataDir,
		FileName:      appConfig.SubramosFile,

		S3Bucket:   appConfig.S3Bucket,
		S3Prefix:   appConfig.S3Prefix,
		S3Endpoint: appConfig.S3Endpoint,
		AWSRegion:  appConfig.AWSRegion,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		PostgresURL:   appConfig.PostgresURL,
		PostgresTable: appConfig.PostgresTable,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case LocalBackend:
		if c.FileName == "" {
			return fmt.Errorf("file name is required for local backend")
		}
	case S3Backend:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 backend")
		}
		if c.FileName == "" {
			return fmt.Errorf("file name is required for s3 backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("Postgres URL is required for postgres backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// Memory backend doesn't require additional validation
		// DataDirectory will default to "data" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{LocalBackend, S3Backend, SQLiteBackend, PostgresBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
