package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/learnloop/api/config"
)

// PostgreSQLStore is a plain database/sql store for the learning-record
// tables. The analytics pipeline reads through it so the ordered,
// validity-filtered fetch queries stay explicit SQL; everything else in the
// app goes through GORM.
type PostgreSQLStore struct {
	db *sql.DB
}

func Start() (*PostgreSQLStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	connectStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv.DB_HOST,
		getEnv.DB_PORT,
		getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD,
		getEnv.DB_NAME,
		getEnv.DB_SSL_MODE,
	)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		fmt.Println("Unable to start PostgreSQL database.")
		return nil, err
	}

	log.Println("Successfully connected to PostgreSQL database.")
	return &PostgreSQLStore{
		db: db,
	}, nil
}

// Init ensures the supporting indexes that GORM's AutoMigrate does not
// express exist. The record tables themselves are created by the GORM store.
func (s *PostgreSQLStore) Init() error {
	log.Println("Initializing PostgreSQL record store indexes.")
	return s.Initialize()
}

// Close closes the database connection
func (s *PostgreSQLStore) Close() error {
	log.Println("Closing PostgreSQL connection...")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

// GetDB returns the raw *sql.DB instance
func (s *PostgreSQLStore) GetDB() interface{} {
	return s.db
}
