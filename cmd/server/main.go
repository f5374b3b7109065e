// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"gorm.io/gorm/logger"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
	"github.com/orca-svg/Sidera-project-sub000/internal/locking"
	"github.com/orca-svg/Sidera-project-sub000/internal/server"
	"github.com/orca-svg/Sidera-project-sub000/pkg/scheduler"
)

// Version is set at build time via ldflags (e.g. goreleaser -X main.Version={{.Version}}).
var Version string

func main() {
	// CRITICAL: MCP servers must ONLY output JSON-RPC to stdout
	// Redirect all logging to stderr
	log.SetOutput(os.Stderr)

	rebuildAll := flag.Bool("rebuild", false, "Rebuild every project graph and exit")
	rebuildProject := flag.String("rebuild-project", "", "Rebuild one project graph and exit")
	dbType := flag.String("db-type", "", "Database type (sqlite or postgres)")
	dbPath := flag.String("db-path", "", "Database path (for sqlite)")
	dbDSN := flag.String("db-dsn", "", "Database DSN (for postgres)")
	configPath := flag.String("config", "", "Path to config file")
	enableAI := flag.Bool("enable-ai", false, "Enable the embedding and generation providers")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Sidera MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Server Mode:\n")
		fmt.Fprintf(os.Stderr, "  %s                          Start MCP server (stdio)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nGraph Rebuild:\n")
		fmt.Fprintf(os.Stderr, "  %s --rebuild                Recompute every project graph and exit\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --rebuild-project <id>   Recompute one project graph and exit\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE            Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH            SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN             PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     API key (required when AI providers enabled)\n")
	}

	flag.Parse()

	if *rebuildAll && *rebuildProject != "" {
		log.Fatal("ERROR: --rebuild and --rebuild-project cannot be used together")
	}

	log.Println("Starting Sidera MCP Server...")

	// Load configuration
	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
		if err != nil {
			log.Printf("Warning: Failed to load config from %s: %v", *configPath, err)
			log.Println("Using defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Printf("Loaded configuration from %s", *configPath)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			log.Printf("Warning: Failed to load default config: %v", err)
			log.Println("Using built-in defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Printf("Loaded configuration from ~/%s/%s", config.DefaultConfigDir, config.DefaultConfigFile)
		}
	}

	applyEnvOverrides(cfg)
	applyCLIOverrides(cfg, *dbType, *dbPath, *dbDSN, *enableAI)

	log.Printf("Configuration: database=%s", cfg.Database.Type)

	// Connect to database
	dbCfg := &database.Config{
		Type:        cfg.Database.Type,
		SQLitePath:  cfg.Database.SQLitePath,
		PostgresDSN: cfg.Database.PostgresDSN,
		LogLevel:    logger.Silent, // CRITICAL: Silence GORM stdout output for MCP
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db) //nolint:errcheck

	log.Printf("Connected to database: %s", cfg.Database.Type)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := locking.MigrateLocks(db); err != nil {
		log.Fatalf("Failed to migrate lock table: %v", err)
	}
	log.Println("Database migrations completed")

	// Create MCP server (wires stores, recomputer, AI, snapshots)
	mcpServer, err := server.NewMCPServer(cfg, db)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// REBUILD MODE: recompute and exit
	if *rebuildAll || *rebuildProject != "" {
		runRebuildMode(mcpServer, *rebuildProject)
		return
	}

	// Background reconciliation
	if cfg.Scheduler.Enabled {
		toolCtx := mcpServer.GetToolContext()
		sched := scheduler.NewScheduler(toolCtx.Recomputer, toolCtx.Exporter, cfg.Scheduler.RebuildIntervalMinutes)
		sched.Start()
		defer sched.Stop()
		log.Printf("Background rebuild scheduler started (interval: %d minutes)", cfg.Scheduler.RebuildIntervalMinutes)
	}

	log.Println("MCP server ready (stdio mode) - 5 tools registered")
	if mcpServer.HasAI() {
		log.Println("AI providers enabled")
	}

	if err := mcpserver.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

// runRebuildMode recomputes graphs and exits
func runRebuildMode(mcpServer *server.MCPServer, projectID string) {
	recomputer := mcpServer.GetToolContext().Recomputer

	if projectID != "" {
		result, err := recomputer.RebuildProject(projectID)
		if err != nil {
			log.Fatalf("Rebuild failed: %v", err)
		}
		log.Printf("Rebuilt project %s: %d turns, %d edges in %s",
			projectID, result.TurnsProcessed, result.EdgesCreated, result.Duration)
		return
	}

	results, err := recomputer.RebuildAll()
	if err != nil {
		log.Fatalf("Rebuild failed: %v", err)
	}
	for id, result := range results {
		log.Printf("Rebuilt project %s: %d turns, %d edges in %s",
			id, result.TurnsProcessed, result.EdgesCreated, result.Duration)
	}
	log.Printf("Rebuild completed: %d projects", len(results))
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.Database.Type = v
		log.Printf("Database type from env: %s", v)
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.SQLitePath = v
		log.Printf("Database path from env: %s", v)
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
		log.Printf("Database DSN from env (hidden)")
	}
}

// applyCLIOverrides applies CLI flag overrides (highest priority)
func applyCLIOverrides(cfg *config.Config, dbType, dbPath, dbDSN string, enableAI bool) {
	if dbType != "" {
		cfg.Database.Type = dbType
		log.Printf("Database type from CLI: %s", dbType)
	}
	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		log.Printf("Database path from CLI: %s", dbPath)
	}
	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		log.Printf("Database DSN from CLI (hidden)")
	}
	if enableAI {
		cfg.AI.Enabled = true
		log.Println("AI providers enabled from CLI")
	}
}
