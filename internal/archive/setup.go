package archive

import (
	"database/sql"
	"fmt"

	"chatapp-gateway/internal/config"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func readPragmaValues(sugar *zap.SugaredLogger, db *sql.DB) error {
	var journalModeValue string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalModeValue)
	if err != nil {
		return err
	}

	var synchronousValue int
	err = db.QueryRow("PRAGMA synchronous").Scan(&synchronousValue)
	if err != nil {
		return err
	}

	var synchronousValueStr string
	switch synchronousValue {
	case 0:
		synchronousValueStr = "off"
	case 1:
		synchronousValueStr = "normal"
	case 2:
		synchronousValueStr = "full"
	case 3:
		synchronousValueStr = "extra"
	default:
		return fmt.Errorf("synchronous value is unsupported")
	}

	sugar.Debugf("sqlite PRAGMA journal_mode: %s, synchronous: %s", journalModeValue, synchronousValueStr)
	return nil
}

// Open connects to the archive database, sqlite when self contained and
// mysql/mariadb otherwise, and creates the tables.
func Open(sugar *zap.SugaredLogger, cfg *config.ConfigFile) (*sql.DB, error) {
	var db *sql.DB
	var err error

	if cfg.SelfContained {
		sugar.Infof("Opening sqlite archive at %s", cfg.SqlitePath)
		db, err = openSqlite(sugar, cfg.SqlitePath)
	} else {
		sugar.Infof("Connecting to mysql/mariadb archive at %s:%s", cfg.DbAddress, cfg.DbPort)
		db, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
		if err == nil {
			db.SetMaxOpenConns(10)
		}
	}
	if err != nil {
		return nil, err
	}

	err = setupTables(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating archive tables: %w", err)
	}
	return db, nil
}

func openSqlite(sugar *zap.SugaredLogger, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// there can be sqlite busy errors if this is not set to 1
	db.SetMaxOpenConns(1)

	err = setPragmaValues(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	err = readPragmaValues(sugar, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func setupTables(db *sql.DB) error {
	var err error

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT UNSIGNED PRIMARY KEY,
				username VARCHAR(64) NOT NULL,
				avatar TEXT,
				bot BOOLEAN NOT NULL
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS servers (
				id BIGINT UNSIGNED PRIMARY KEY,
				owner_id BIGINT UNSIGNED NOT NULL,
				name VARCHAR(100) NOT NULL,
				icon TEXT
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS channels (
				id BIGINT UNSIGNED PRIMARY KEY,
				server_id BIGINT UNSIGNED NOT NULL,
				name VARCHAR(100) NOT NULL,
				topic TEXT
			);
		`)
	if err != nil {
		return err
	}

	// rows are kept after a message is deleted, only flagged
	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS messages (
				id BIGINT UNSIGNED PRIMARY KEY,
				channel_id BIGINT UNSIGNED NOT NULL,
				user_id BIGINT UNSIGNED NOT NULL,
				message TEXT NOT NULL,
				edited BOOLEAN NOT NULL,
				deleted BOOLEAN NOT NULL,
				created_at BIGINT NOT NULL
			);
		`)
	if err != nil {
		return err
	}

	return nil
}
