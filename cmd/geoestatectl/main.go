// Command geoestatectl административная утилита: миграции, тарифы и импорт объектов.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/geoestate/internal/cache"
	"github.com/magabrotheeeer/geoestate/internal/config"
	"github.com/magabrotheeeer/geoestate/internal/storage/repository"
)

var rootCmd = &cobra.Command{
	Use:           "geoestatectl",
	Short:         "GeoEstate administration tool",
	Long:          `Apply migrations, manage the plan catalog and import GeoJSON properties`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(plansCmd)
	rootCmd.AddCommand(propertiesCmd)
}

// openStorage загружает конфиг и открывает базу.
func openStorage() (*config.Config, *repository.Storage, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	return cfg, db, nil
}

// openCache подключается к redis. Ошибка не фатальна: кэш тарифов истечёт сам.
func openCache(cmd *cobra.Command, cfg *config.Config) *cache.Cache {
	c, err := cache.InitServer(cmd.Context(), cfg.RedisConnection)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: redis unavailable, plan cache not invalidated: %v\n", err)
		return nil
	}
	return c
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
