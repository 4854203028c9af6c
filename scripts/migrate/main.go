package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"covermsg/internal/config"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Migration represents a database migration
type Migration struct {
	Version   int
	Name      string
	FilePath  string
	Applied   bool
	AppliedAt *time.Time
}

func main() {
	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	command := "help"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command != "up" && command != "down" && command != "status" {
		printUsage()
		if command != "help" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}

	if err := createMigrationTable(db); err != nil {
		printError(fmt.Sprintf("Failed to create migration table: %v", err))
		os.Exit(1)
	}

	switch command {
	case "up":
		err = runUp(db)
	case "down":
		err = runDown(db)
	case "status":
		err = showStatus(db)
	}
	if err != nil {
		printError(fmt.Sprintf("%s failed: %v", command, err))
		os.Exit(1)
	}
}

// createMigrationTable creates the schema_migrations tracking table
func createMigrationTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

// getAppliedMigrations retrieves all applied migrations from database
func getAppliedMigrations(db *sql.DB) (map[int]Migration, error) {
	rows, err := db.Query(`SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		m.Applied = true
		applied[m.Version] = m
	}

	return applied, nil
}

// getMigrationFiles scans the migrations directory for NNN_name.sql files
func getMigrationFiles(dir string) ([]Migration, error) {
	var migrations []Migration

	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return migrations, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	pattern := regexp.MustCompile(`^(\d{3})_(.+)\.sql$`)

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := pattern.FindStringSubmatch(file.Name())
		if len(matches) != 3 {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			FilePath: filepath.Join(dir, file.Name()),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// runUp applies all pending migrations
func runUp(db *sql.DB) error {
	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}

	migrations, err := getMigrationFiles("migrations")
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		printWarning("No migration files found in migrations/ directory")
		return nil
	}

	var pending []Migration
	for _, m := range migrations {
		if _, exists := applied[m.Version]; !exists {
			pending = append(pending, m)
		}
	}

	if len(pending) == 0 {
		printSuccess("All migrations are up to date")
		return nil
	}

	for _, migration := range pending {
		if err := applyMigration(db, migration); err != nil {
			return fmt.Errorf("failed to apply migration %03d_%s: %w", migration.Version, migration.Name, err)
		}
	}

	printSuccess(fmt.Sprintf("Applied %d migration(s)", len(pending)))
	return nil
}

// applyMigration executes a single migration file in a transaction
func applyMigration(db *sql.DB, migration Migration) error {
	printInfo(fmt.Sprintf("Applying migration %03d_%s...", migration.Version, migration.Name))

	content, err := os.ReadFile(migration.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		migration.Version,
		migration.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// runDown rolls back the last applied migration
func runDown(db *sql.DB) error {
	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		printWarning("No migrations to rollback")
		return nil
	}

	var lastVersion int
	for version := range applied {
		if version > lastVersion {
			lastVersion = version
		}
	}
	last := applied[lastVersion]

	dropSQL, ok := rollbackSQL[last.Version]
	if !ok {
		return fmt.Errorf("no rollback defined for migration version %d", last.Version)
	}

	printInfo(fmt.Sprintf("Rolling back migration %03d_%s...", last.Version, last.Name))

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(dropSQL); err != nil {
		return fmt.Errorf("failed to execute rollback SQL: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = $1", last.Version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	printSuccess(fmt.Sprintf("Rolled back migration %03d_%s", last.Version, last.Name))
	return nil
}

// rollbackSQL defines the rollback for each migration version
var rollbackSQL = map[int]string{
	1: `
		DROP TABLE IF EXISTS policy_members CASCADE;
		DROP TABLE IF EXISTS settings_meta CASCADE;
		DROP TABLE IF EXISTS system_settings CASCADE;
		DROP TABLE IF EXISTS attachments CASCADE;
		DROP TABLE IF EXISTS deliveries CASCADE;
		DROP TABLE IF EXISTS attachment_templates CASCADE;
		DROP TABLE IF EXISTS messaging_routes CASCADE;
		DROP TABLE IF EXISTS messaging_templates CASCADE;
		DROP TABLE IF EXISTS customers CASCADE;
	`,
}

// showStatus prints each migration file with its applied state
func showStatus(db *sql.DB) error {
	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}

	migrations, err := getMigrationFiles("migrations")
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		printWarning("No migration files found in migrations/ directory")
		return nil
	}

	printInfo("Migration status:")
	for _, m := range migrations {
		if a, ok := applied[m.Version]; ok {
			printSuccess(fmt.Sprintf("  [x] %03d_%s (applied %s)", m.Version, m.Name, a.AppliedAt.Format("2006-01-02 15:04")))
		} else {
			printWarning(fmt.Sprintf("  [ ] %03d_%s (pending)", m.Version, m.Name))
		}
	}

	return nil
}

func printUsage() {
	fmt.Println("Usage: go run scripts/migrate/main.go <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up      Apply all pending migrations")
	fmt.Println("  down    Rollback the last applied migration")
	fmt.Println("  status  Show migration status")
}

func printInfo(msg string)    { fmt.Println(colorCyan + msg + colorReset) }
func printSuccess(msg string) { fmt.Println(colorGreen + msg + colorReset) }
func printWarning(msg string) { fmt.Println(colorYellow + msg + colorReset) }
func printError(msg string)   { fmt.Println(colorRed + msg + colorReset) }
