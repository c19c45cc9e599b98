// Command verifierd is a one-shot verifier: it fetches a router's
// current accumulator over the digest transport (directly, or over an
// SSH tunnel when the router's port isn't publicly reachable), decodes
// it, and validates it against a candidate log read from disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/ygina/subset-digest/internal/logsource"
	"github.com/ygina/subset-digest/internal/oracle"
	"github.com/ygina/subset-digest/internal/verifierd"
	"github.com/ygina/subset-digest/pkg/accumulator"
)

func main() {
	accumulator.SetDefaultOracles(oracle.DefaultRootOracle, oracle.DefaultILPOracle)

	routerAddr := flag.String("router-addr", "", "host:port of the router's digest server (required)")
	logPath := flag.String("log", "", "length-prefixed candidate log file (required)")
	reset := flag.Bool("reset", false, "reset the router's accumulator after fetching")
	drop := flag.Int("drop", 0, "synthetically drop N random entries from the candidate log before validating, for testing")

	sshAddress := flag.String("router-ssh", "", "SSH host[:22] to tunnel through to reach the router")
	sshUser := flag.String("ssh-user", "", "SSH username for --router-ssh")
	sshKeyPath := flag.String("ssh-key", "", "path to the SSH private key for --router-ssh")

	timeout := flag.Duration("timeout", 30*time.Second, "timeout for the digest fetch")
	flag.Parse()

	if *routerAddr == "" || *logPath == "" {
		fmt.Fprintln(os.Stderr, "usage: verifierd -router-addr=host:port -log=path [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	src, err := logsource.OpenLengthPrefixedFile(*logPath)
	if err != nil {
		log.Fatalf("verifierd: opening log %s: %v", *logPath, err)
	}
	candidate, err := logsource.ReadAll(src)
	src.Close()
	if err != nil {
		log.Fatalf("verifierd: reading log %s: %v", *logPath, err)
	}
	if *drop > 0 {
		candidate = dropRandom(candidate, *drop)
	}
	log.Printf("verifierd: loaded %d candidate entries from %s", len(candidate), *logPath)

	mode := verifierd.Peek
	if *reset {
		mode = verifierd.PeekAndReset
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var digestBytes []byte
	if *sshAddress != "" {
		tunnel := verifierd.SSHTunnel{
			Address:        *sshAddress,
			Username:       *sshUser,
			PrivateKeyPath: *sshKeyPath,
		}
		digestBytes, err = verifierd.FetchDigestViaSSH(ctx, tunnel, *routerAddr, mode)
	} else {
		digestBytes, err = verifierd.FetchDigest(ctx, *routerAddr, mode)
	}
	if err != nil {
		log.Fatalf("verifierd: fetching digest: %v", err)
	}
	log.Printf("verifierd: fetched %d bytes from %s", len(digestBytes), *routerAddr)

	result, dropped, total, err := verifierd.DecodeAndValidate(digestBytes, candidate, oracle.DefaultRootOracle, oracle.DefaultILPOracle)
	if err != nil {
		log.Fatalf("verifierd: validating: %v", err)
	}

	fmt.Printf("outcome: %s\n", result)
	fmt.Printf("is_valid: %v\n", result.IsValid())
	fmt.Printf("is_undetermined: %v\n", result.IsUndetermined())
	fmt.Printf("processed_total: %d\n", total)
	fmt.Printf("dropped_indices: %v\n", dropped)
}

// dropRandom removes n random entries from the candidate log,
// synthetically exercising the drop-detection path without a router
// that actually drops packets.
func dropRandom(candidate [][]byte, n int) [][]byte {
	if n >= len(candidate) {
		return nil
	}
	idx := rand.Perm(len(candidate))[:n]
	drop := make(map[int]bool, n)
	for _, i := range idx {
		drop[i] = true
	}
	out := make([][]byte, 0, len(candidate)-n)
	for i, e := range candidate {
		if !drop[i] {
			out = append(out, e)
		}
	}
	return out
}
