package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default config and an empty library",
	Long: `Write a default config file and create the library database.

This command:
  - Creates ~/.config/prompts/config.toml if it doesn't exist
  - Creates the library database at storage.path

Existing config files are never overwritten.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

type fileConfig struct {
	Storage struct {
		Path string `toml:"path"`
	} `toml:"storage"`
	Export struct {
		Dir string `toml:"dir"`
	} `toml:"export"`
	Import struct {
		DefaultMode string `toml:"default_mode"`
	} `toml:"import"`
	Backups struct {
		RetentionDays int `toml:"retention_days"`
	} `toml:"backups"`
	Embeddings struct {
		Enabled   bool   `toml:"enabled"`
		Model     string `toml:"model"`
		OllamaURL string `toml:"ollama_url"`
	} `toml:"embeddings"`
	Search struct {
		KeywordWeight  float64 `toml:"keyword_weight"`
		SemanticWeight float64 `toml:"semantic_weight"`
	} `toml:"search"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

func defaultFileConfig() fileConfig {
	var c fileConfig
	c.Storage.Path = config.GetStoragePath()
	c.Export.Dir = config.GetExportDir()
	c.Import.DefaultMode = config.GetDefaultImportMode()
	c.Backups.RetentionDays = config.GetRetentionDays()
	c.Embeddings.Enabled = config.GetEmbeddingsEnabled()
	c.Embeddings.Model = config.GetEmbeddingModel()
	c.Embeddings.OllamaURL = config.GetOllamaURL()
	c.Search.KeywordWeight = config.GetKeywordWeight()
	c.Search.SemanticWeight = config.GetSemanticWeight()
	c.Log.Level = config.GetLogLevel()
	return c
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := filepath.Join(config.Dir(), "config.toml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		encErr := toml.NewEncoder(f).Encode(defaultFileConfig())
		closeErr := f.Close()
		if encErr != nil {
			return fmt.Errorf("failed to write config file: %w", encErr)
		}
		if closeErr != nil {
			return fmt.Errorf("failed to write config file: %w", closeErr)
		}

		fmt.Printf("✓ Created default config: %s\n", configPath)
	} else {
		fmt.Printf("Config already exists: %s\n", configPath)
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	prompts, err := lib.Prompts(contextOf(cmd))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Library ready: %s (%d prompts)\n", config.GetStoragePath(), len(prompts))
	fmt.Println("\n  You can now use: prompts add <title>")

	return nil
}
