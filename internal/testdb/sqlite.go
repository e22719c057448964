// Package testdb provides database fixtures for tests: a fast in-memory
// sqlite schema for unit tests and a pgvector Postgres container for
// integration tests.
package testdb

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The production schema uses Postgres-only defaults (gen_random_uuid) and
// the vector type, so the sqlite schema is spelled out by hand. Services
// assign ids themselves, so missing column defaults do not matter here.
var sqliteSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE user_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		bio TEXT,
		cooking_ability_level TEXT DEFAULT 'beginner',
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE dietary_preferences (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		preference_type TEXT NOT NULL,
		custom_name TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE allergens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		allergen_name TEXT NOT NULL,
		severity_level INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE recipes (
		id TEXT PRIMARY KEY,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT,
		cuisine TEXT,
		image_url TEXT,
		ingredients TEXT,
		instructions TEXT,
		tags TEXT,
		prep_time TEXT,
		cook_time TEXT,
		servings TEXT,
		difficulty TEXT,
		calories REAL,
		protein REAL,
		carbs REAL,
		fat REAL,
		embedding TEXT,
		user_id TEXT NOT NULL
	)`,
	`CREATE TABLE recipe_favorites (
		id TEXT PRIMARY KEY,
		created_at DATETIME,
		updated_at DATETIME,
		recipe_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		UNIQUE (recipe_id, user_id)
	)`,
	`CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'free',
		status TEXT NOT NULL DEFAULT 'active',
		period_end DATETIME,
		generations_used INTEGER NOT NULL DEFAULT 0,
		quota INTEGER NOT NULL DEFAULT 30,
		created_at DATETIME,
		updated_at DATETIME
	)`,
}

// OpenSQLite returns an isolated in-memory database with the full schema.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	for _, stmt := range sqliteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}
