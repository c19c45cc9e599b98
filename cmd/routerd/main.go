// Command routerd runs the trusted forwarding element's agent: it owns
// one accumulator, ingests a candidate log of forwarded packets into
// it, and serves the accumulator's serialized state over the digest
// transport for a verifier to fetch.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ygina/subset-digest/internal/logsource"
	"github.com/ygina/subset-digest/internal/oracle"
	"github.com/ygina/subset-digest/internal/routerd"
	"github.com/ygina/subset-digest/pkg/accumulator"
)

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("routerd: required environment variable %s is not set", key)
	}
	return v
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvUintOrDefault(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.Fatalf("routerd: invalid %s=%q: %v", key, v, err)
	}
	return n
}

func main() {
	listenAddr := getEnvOrDefault("ROUTER_LISTEN_ADDR", ":7878")
	kind := requireEnv("ACCUMULATOR_KIND") // naive | power_sum | cbf | iblt
	threshold := uint32(getEnvUintOrDefault("ACCUMULATOR_THRESHOLD", 50))
	ingestBuffer := int(getEnvUintOrDefault("INGEST_BUFFER", 1024))

	accumulator.SetDefaultOracles(oracle.DefaultRootOracle, oracle.DefaultILPOracle)

	var seedPtr *uint64
	if s := os.Getenv("ACCUMULATOR_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			log.Fatalf("routerd: invalid ACCUMULATOR_SEED=%q: %v", s, err)
		}
		seedPtr = &seed
	}

	acc, err := newAccumulator(kind, threshold, seedPtr)
	if err != nil {
		log.Fatalf("routerd: %v", err)
	}

	router := routerd.NewRouter(acc, ingestBuffer)
	server, err := routerd.NewDigestServer(router, listenAddr)
	if err != nil {
		log.Fatalf("routerd: failed to bind %s: %v", listenAddr, err)
	}
	log.Printf("routerd: accumulator=%s listening on %s", kind, server.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := os.Getenv("INITIAL_LOG_PATH"); path != "" {
		go ingestInitialLog(router, path)
	}

	if err := routerd.Serve(ctx, router, server); err != nil && ctx.Err() == nil {
		log.Fatalf("routerd: serve failed: %v", err)
	}
	log.Println("routerd: shut down")
}

// newAccumulator builds the accumulator named by kind, the same four
// variants the digest transport's wire tag distinguishes.
func newAccumulator(kind string, threshold uint32, seed *uint64) (accumulator.Accumulator, error) {
	switch kind {
	case "naive":
		return accumulator.NewNaiveAccumulator(seed), nil
	case "power_sum":
		return accumulator.NewPowerSumAccumulator(int(threshold), seed, oracle.DefaultRootOracle), nil
	case "cbf":
		return accumulator.NewCBFAccumulator(threshold, seed, oracle.DefaultILPOracle), nil
	case "iblt":
		return accumulator.NewIBLTAccumulator(threshold, seed, oracle.DefaultILPOracle), nil
	default:
		return nil, fmt.Errorf("unknown ACCUMULATOR_KIND %q (want naive|power_sum|cbf|iblt)", kind)
	}
}

// ingestInitialLog feeds a length-prefixed capture file into the router
// at startup, standing in for packets arriving off the wire in a real
// deployment.
func ingestInitialLog(router *routerd.Router, path string) {
	src, err := logsource.OpenLengthPrefixedFile(path)
	if err != nil {
		log.Printf("routerd: failed to open initial log %s: %v", path, err)
		return
	}
	defer src.Close()

	elems, err := logsource.ReadAll(src)
	if err != nil {
		log.Printf("routerd: error reading initial log %s: %v", path, err)
	}
	for _, e := range elems {
		router.Ingest(e)
	}
	log.Printf("routerd: ingested %d elements from %s", len(elems), path)
}
