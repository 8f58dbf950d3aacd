package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain sets up the test database before running tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	// Check if we should use an external database (for CI or local development)
	dbHost := os.Getenv("TEST_DB_HOST")
	dbPort := os.Getenv("TEST_DB_PORT")
	dbUser := os.Getenv("TEST_DB_USER")
	dbPassword := os.Getenv("TEST_DB_PASSWORD")
	dbName := os.Getenv("TEST_DB_NAME")

	var dsn string
	var err error

	if dbHost != "" {
		// Use external database
		if dbPort == "" {
			dbPort = "5432"
		}
		if dbUser == "" {
			dbUser = "postgres"
		}
		if dbPassword == "" {
			dbPassword = "postgres"
		}
		if dbName == "" {
			dbName = "test_db"
		}

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost, dbPort, dbUser, dbPassword, dbName)

		fmt.Printf("Using external database: %s:%s/%s\n", dbHost, dbPort, dbName)
	} else {
		// Start a PostgreSQL container for testing
		pgContainer, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
			os.Exit(1)
		}

		fmt.Printf("Started PostgreSQL container\n")
	}

	// Connect to the database
	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		if pgContainer != nil {
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
		}
		os.Exit(1)
	}

	// Initialize the database schema
	err = initializeTestDatabase(testDB)
	if err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		if pgContainer != nil {
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
		}
		os.Exit(1)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	if pgContainer != nil {
		if err := pgContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
		}
	}

	os.Exit(code)
}

// initializeTestDatabase runs the schema initialization and seed data
func initializeTestDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Read and execute the schema initialization SQL
	schemaPath := filepath.Join("..", "..", "db", "init_pg_db.sql")
	schemaSQL, err := os.ReadFile(schemaPath) //nolint:gosec,G304
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	_, err = sqlDB.Exec(string(schemaSQL))
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// initPGTestDB initializes a test database for each test
// This function creates a new store instance and ensures clean state
func initPGTestDB(t *testing.T) Store {
	// Start a transaction for test isolation
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	// Store the transaction in test context for cleanup
	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGStore(tx)
}

// cleanupPGTestDB is called after each test to clean up
// With transaction-based isolation, this is handled by the t.Cleanup rollback
func cleanupPGTestDB(t *testing.T) {
	// Cleanup is handled by transaction rollback in t.Cleanup
}

// TestPostgreSQLStore runs all store tests against PostgreSQL
func TestPostgreSQLStore(t *testing.T) {
	if testDB == nil {
		t.Fatal("Test database not initialized")
	}

	RunStoreTests(t, initPGTestDB, cleanupPGTestDB)
}

// initSharedTestDB returns a store on the shared connection pool for tests that need concurrent
// transactions. Rows of the given contract are removed when the test ends.
func initSharedTestDB(t *testing.T, contract string) Store {
	t.Cleanup(func() {
		testDB.Where("contract_address = ?", contract).Delete(&schema.TransactionRecord{})
		testDB.Where("contract_address = ?", contract).Delete(&schema.Asset{})
	})
	return NewPGStore(testDB)
}

func TestPostgreSQLStore_ConcurrentCreateListing(t *testing.T) {
	ctx := context.Background()
	contract := domain.NormalizeAddress("0x5656565656565656565656565656565656565656")
	store := initSharedTestDB(t, contract)
	ref := buildTestAssetRef(contract, "1")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.CreateListing(ctx, buildTestListing(ref, fmt.Sprintf("%d", i+1)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyListed)
	}
	assert.Equal(t, 1, succeeded)

	_, total, err := store.GetListingsByFilter(ctx, ListingQueryFilter{
		Statuses: []domain.ListingStatus{domain.ListingStatusActive},
		Contract: &contract,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestPostgreSQLStore_ConcurrentBids(t *testing.T) {
	ctx := context.Background()
	contract := domain.NormalizeAddress("0x7878787878787878787878787878787878787878")
	store := initSharedTestDB(t, contract)

	listing, err := store.CreateListing(ctx, buildTestAuction(buildTestAssetRef(contract, "1"), "1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	errBidTooLow := errors.New("bid too low")
	bid := func(amount string) error {
		value := decimal.RequireFromString(amount)
		_, err := store.UpdateListing(ctx, listing.ID, func(l *schema.Listing, a *schema.Asset) (*schema.TransactionRecord, error) {
			if l.HighestBid != nil && !value.GreaterThan(*l.HighestBid) {
				return nil, errBidTooLow
			}
			l.HighestBid = &value
			bidder := testBidder
			l.HighestBidder = &bidder
			return nil, nil
		})
		return err
	}

	amounts := []string{"2.0", "2.5", "1.5", "3", "2.9", "0.1", "2.75", "1"}
	var wg sync.WaitGroup
	for _, amount := range amounts {
		wg.Add(1)
		go func(amount string) {
			defer wg.Done()
			if err := bid(amount); err != nil {
				assert.ErrorIs(t, err, errBidTooLow)
			}
		}(amount)
	}
	wg.Wait()

	got, err := store.GetListingByID(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, got.HighestBid)
	assert.Equal(t, "3", got.HighestBid.String())
	assert.Greater(t, got.Version, uint64(1))
}

func TestPostgreSQLStore_ConcurrentReplay(t *testing.T) {
	ctx := context.Background()
	contract := domain.NormalizeAddress("0x9a9a9a9a9a9a9a9a9a9a9a9a9a9a9a9a9a9a9a9a")
	store := initSharedTestDB(t, contract)
	ref := buildTestAssetRef(contract, "1")
	input := buildTestTransfer(ref, testSeller, testBuyer, "0x"+ulid.Make().String(), 1000, 4)

	var wg sync.WaitGroup
	created := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.IndexTransfer(ctx, input)
			if assert.NoError(t, err) {
				created <- result.RecordCreated
			}
		}()
	}
	wg.Wait()
	close(created)

	count := 0
	for c := range created {
		if c {
			count++
		}
	}
	assert.Equal(t, 1, count)

	asset, err := store.GetAsset(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, testBuyer, asset.Owner)

	_, total, err := store.GetTransactionsByFilter(ctx, TransactionQueryFilter{AssetID: &asset.ID})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}
