package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// Open connects to PostgreSQL. Reads are routed to replicaDSN when it is not empty;
// queries pinned with dbresolver.Write always use the primary.
func Open(dsn, replicaDSN string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if replicaDSN == "" {
		return db, nil
	}

	err = db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: []gorm.Dialector{postgres.Open(replicaDSN)},
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to register read replica: %w", err)
	}

	return db, nil
}
