// Command verifier-api runs the verifier's long-lived control plane:
// an HTTP surface for triggering validation runs against live routers,
// shadow-mode comparisons between accumulator kinds, paginated run
// history, and a websocket stream of live outcomes.
package main

import (
	"log"
	"os"

	"github.com/ygina/subset-digest/internal/api"
	"github.com/ygina/subset-digest/internal/oracle"
	"github.com/ygina/subset-digest/internal/store"
	"github.com/ygina/subset-digest/pkg/accumulator"
)

func main() {
	log.Println("Starting subset-digest verifier API...")

	accumulator.SetDefaultOracles(oracle.DefaultRootOracle, oracle.DefaultILPOracle)

	var dbStore *store.PostgresStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		dbStore, err = store.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without run history. Error: %v", err)
			dbStore = nil
		} else {
			defer dbStore.Close()
			if err := dbStore.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("Warning: DATABASE_URL not set, continuing without run history")
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(dbStore, wsHub)

	port := getEnvOrDefault("PORT", "5340")
	log.Printf("Verifier API running on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
