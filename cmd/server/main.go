/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fee calculation engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Optionally seed demo tariffs and apartments
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: feeengine.db)
           Use ":memory:" for in-memory database
  -seed    Seed demo fee types, tariffs, and apartments on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/feeengine.db"

  # Run in-memory with demo data
  ./server -db=":memory:" -seed

ENVIRONMENT:
  PORT     Overrides the default port when the -port flag is not set.
  DB_PATH  Overrides the default database path.
  A local .env file is loaded when present.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
  - tariff/presets.go: Seeded demo tariffs
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/warp/fee-engine/api"
	"github.com/warp/fee-engine/billing"
	"github.com/warp/fee-engine/store/sqlite"
	"github.com/warp/fee-engine/tariff"
)

func main() {
	// .env is optional; flags win over environment values.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "feeengine.db"), "SQLite database path")
	seed := flag.Bool("seed", false, "seed demo tariffs and apartments")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seed {
		if err := seedDemoData(context.Background(), store); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
		log.Println("Seeded demo tariffs and apartments")
	}

	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedDemoData loads the standard residential tariffs and a couple of
// apartments so a fresh database is immediately usable. Existing fee
// types are left untouched.
func seedDemoData(ctx context.Context, store *sqlite.Store) error {
	existing, err := store.ListFeeTypes(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now()
	feeTypes := []billing.FeeType{
		tariff.ApplyFrom(tariff.ResidentialElectricity(
			billing.FeeTypeID(uuid.NewString()), billing.RateConfigID(uuid.NewString())), now),
		tariff.ApplyFrom(tariff.ResidentialWater(
			billing.FeeTypeID(uuid.NewString()), billing.RateConfigID(uuid.NewString())), now),
		tariff.ApplyFrom(tariff.ManagementFee(
			billing.FeeTypeID(uuid.NewString()), "7000"), now),
		tariff.ApplyFrom(tariff.ParkingFee(
			billing.FeeTypeID(uuid.NewString())), now),
	}

	for _, ft := range feeTypes {
		// Presets ship inactive configs; a seeded database should bill out
		// of the box, so the first config of each tiered fee type goes live.
		if len(ft.RateConfigs) > 0 {
			ft.RateConfigs[0].Status = billing.ConfigActive
		}
		if err := store.SaveFeeType(ctx, ft); err != nil {
			return err
		}
	}

	apartments := []billing.Apartment{
		{ID: billing.ApartmentID(uuid.NewString()), Code: "A-0803", Floor: 8, Area: billing.MustParseDecimal("75.5")},
		{ID: billing.ApartmentID(uuid.NewString()), Code: "A-1201", Floor: 12, Area: billing.MustParseDecimal("98")},
		{ID: billing.ApartmentID(uuid.NewString()), Code: "B-0404", Floor: 4, Area: billing.MustParseDecimal("62.3")},
	}
	for _, a := range apartments {
		if err := store.SaveApartment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
