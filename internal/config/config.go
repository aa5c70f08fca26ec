package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AppName names the config and data directories.
const AppName = "prompts"

// Dir returns the directory holding config.toml.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultStoragePath returns where the library database lives when
// storage.path is not set.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "library.db")
	}
	return filepath.Join(home, ".local", "share", AppName, "library.db")
}

// SetDefaults registers the default value of every setting.
func SetDefaults() {
	viper.SetDefault("storage.path", DefaultStoragePath())
	viper.SetDefault("export.dir", ".")
	viper.SetDefault("import.default_mode", "")
	viper.SetDefault("backups.retention_days", 30)
	viper.SetDefault("embeddings.enabled", false)
	viper.SetDefault("embeddings.model", "nomic-embed-text")
	viper.SetDefault("embeddings.ollama_url", "http://localhost:11434")
	viper.SetDefault("search.keyword_weight", 0.3)
	viper.SetDefault("search.semantic_weight", 0.7)
	viper.SetDefault("log.level", "warn")
}

// GetStoragePath returns the library database path
func GetStoragePath() string {
	if p := viper.GetString("storage.path"); p != "" {
		return p
	}
	return DefaultStoragePath()
}

// GetLockPath returns the import lock file, kept next to the database.
func GetLockPath() string {
	return filepath.Join(filepath.Dir(GetStoragePath()), AppName+".lock.yaml")
}

// GetExportDir returns the default export directory
func GetExportDir() string {
	if dir := viper.GetString("export.dir"); dir != "" {
		return dir
	}
	return "."
}

// GetDefaultImportMode returns the configured import mode, or "" to use
// the suggested one.
func GetDefaultImportMode() string {
	return strings.TrimSpace(viper.GetString("import.default_mode"))
}

// GetRetentionDays returns how long backups are kept by backups prune
func GetRetentionDays() int {
	return viper.GetInt("backups.retention_days")
}

// GetEmbeddingsEnabled returns whether embeddings are enabled
func GetEmbeddingsEnabled() bool {
	return viper.GetBool("embeddings.enabled")
}

// GetEmbeddingModel returns the embedding model to use
func GetEmbeddingModel() string {
	return viper.GetString("embeddings.model")
}

// GetOllamaURL returns the Ollama API URL
func GetOllamaURL() string {
	return viper.GetString("embeddings.ollama_url")
}

// GetKeywordWeight returns the weight for keyword search (0-1)
func GetKeywordWeight() float64 {
	return viper.GetFloat64("search.keyword_weight")
}

// GetSemanticWeight returns the weight for semantic search (0-1)
func GetSemanticWeight() float64 {
	return viper.GetFloat64("search.semantic_weight")
}

// GetLogLevel returns the diagnostic log level
func GetLogLevel() string {
	return viper.GetString("log.level")
}
