package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ygina/subset-digest/internal/metrics"
	"github.com/ygina/subset-digest/internal/oracle"
	"github.com/ygina/subset-digest/internal/shadow"
	"github.com/ygina/subset-digest/internal/store"
	"github.com/ygina/subset-digest/internal/verifierd"
	"github.com/ygina/subset-digest/pkg/accumulator"
	"github.com/ygina/subset-digest/pkg/bloomsd"
)

// maxCandidateElements caps a single validate request's candidate log
// to prevent an unbounded request body from driving an exponential
// Naive validation or a runaway ILP solve.
const maxCandidateElements = 200_000

// APIHandler exposes the verifier's agent over HTTP: fetch-and-validate
// against a live router, shadow-mode comparisons between accumulator
// kinds, and validation-run history.
type APIHandler struct {
	store *store.PostgresStore
	wsHub *Hub
	root  accumulator.RootOracle
	ilp   accumulator.ILPOracle
}

// SetupRouter wires the HTTP surface: a CORS policy gated by
// ALLOWED_ORIGINS, a public group for health/streaming, and a
// bearer-token+rate-limited group for anything that dials a router or
// runs a solver.
func SetupRouter(dbStore *store.PostgresStore, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		store: dbStore,
		wsHub: wsHub,
		root:  oracle.DefaultRootOracle,
		ilp:   oracle.DefaultILPOracle,
	}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/sizing", handler.handleSizing)
		pub.GET("/stream", wsHub.Subscribe)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	// /validate dials an external router and may run an ILP/root solve.
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.POST("/validate", handler.handleValidate)
		auth.POST("/shadow", handler.handleShadowRun)
		auth.GET("/runs", handler.handleListRuns)
	}

	return r
}

// handleHealth returns the verifier's status and accumulator capabilities.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "operational",
		"service": "subset-digest verifier",
		"capabilities": gin.H{
			"naive":     true,
			"power_sum": true,
			"cbf":       true,
			"iblt":      true,
			"shadow":    true,
			"ssh_fetch": true,
		},
		"storeConnected": h.store != nil,
	})
}

// handleSizing reports the Bloom-family sizing math for a hypothetical
// accumulator, so an operator can pick CBF/IBLT parameters before
// standing up a router.
func (h *APIHandler) handleSizing(c *gin.Context) {
	expected, err := strconv.ParseUint(c.DefaultQuery("expectedItems", "1000"), 10, 32)
	if err != nil || expected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expectedItems must be a positive integer"})
		return
	}
	rate, err := strconv.ParseFloat(c.DefaultQuery("falsePositiveRate", "0.0001"), 64)
	if err != nil || rate <= 0 || rate >= 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "falsePositiveRate must be in (0, 1)"})
		return
	}
	bitsPerEntry, err := strconv.ParseUint(c.DefaultQuery("bitsPerEntry", "16"), 10, 6)
	if err != nil || bitsPerEntry == 0 || bitsPerEntry > 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bitsPerEntry must be in [1, 32]"})
		return
	}

	expectedDrops, err := strconv.Atoi(c.DefaultQuery("expectedDrops", strconv.FormatUint(expected/10, 10)))
	if err != nil || expectedDrops < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expectedDrops must be a non-negative integer"})
		return
	}

	numEntries := bloomsd.NeededBits(rate, uint32(expected))
	numHashes := bloomsd.OptimalNumHashes(numEntries, uint32(expected))
	maxCounter := uint32(1)<<bitsPerEntry - 1

	c.JSON(http.StatusOK, gin.H{
		"expectedItems":              expected,
		"numEntries":                 numEntries,
		"numHashes":                  numHashes,
		"bitsPerEntry":               bitsPerEntry,
		"estimatedFalsePositiveRate": metrics.EstimateFalsePositiveRate(numEntries, numHashes, uint32(expected)),
		"expectedCounterValue":       metrics.ExpectedCounterValue(numEntries, numHashes, uint32(expected)),
		"maxSafeItems":               metrics.MaxSafeItemsForCounterWidth(numEntries, numHashes, maxCounter),
		"recommendedIBLTCells":       metrics.RecommendedIBLTCells(expectedDrops, 1.5),
	})
}

// validateRequest is the body for POST /api/v1/validate. Candidate
// elements are base64-encoded since they're arbitrary packet bytes, not
// UTF-8 text.
type validateRequest struct {
	RouterAddr    string   `json:"routerAddr"`
	Mode          string   `json:"mode"` // "peek" or "peek_reset"
	RouterSession string   `json:"routerSession"`
	Candidate     []string `json:"candidate"`

	// Optional SSH tunnel for routers whose digest port isn't
	// publicly reachable.
	SSHAddress        string `json:"sshAddress"`
	SSHUsername       string `json:"sshUsername"`
	SSHPrivateKeyPath string `json:"sshPrivateKeyPath"`
}

var errCandidateTooLarge = errors.New("candidate log exceeds maximum element count")

func decodeCandidate(encoded []string) ([][]byte, error) {
	if len(encoded) > maxCandidateElements {
		return nil, errCandidateTooLarge
	}
	out := make([][]byte, len(encoded))
	for i, s := range encoded {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// handleValidate fetches the router's current digest (directly or over
// SSH) and validates it against the submitted candidate log.
func (h *APIHandler) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RouterAddr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "routerAddr is required"})
		return
	}

	candidate, err := decodeCandidate(req.Candidate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate encoding", "details": err.Error()})
		return
	}

	mode := verifierd.Peek
	if req.Mode == "peek_reset" {
		mode = verifierd.PeekAndReset
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var digestBytes []byte
	if req.SSHAddress != "" {
		tunnel := verifierd.SSHTunnel{
			Address:        req.SSHAddress,
			Username:       req.SSHUsername,
			PrivateKeyPath: req.SSHPrivateKeyPath,
		}
		digestBytes, err = verifierd.FetchDigestViaSSH(ctx, tunnel, req.RouterAddr, mode)
	} else {
		digestBytes, err = verifierd.FetchDigest(ctx, req.RouterAddr, mode)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch digest", "details": err.Error()})
		return
	}

	start := time.Now()
	result, dropped, processedTotal, err := verifierd.DecodeAndValidate(digestBytes, candidate, h.root, h.ilp)
	duration := time.Since(start)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to decode accumulator", "details": err.Error()})
		return
	}

	run := store.ValidationRun{
		ID:              uuid.New(),
		RouterSession:   req.RouterSession,
		AccumulatorKind: accumulatorKindLabel(digestBytes),
		CandidateSize:   len(candidate),
		ProcessedTotal:  processedTotal,
		Outcome:         result.String(),
		IsValid:         result.IsValid(),
		IsUndetermined:  result.IsUndetermined(),
		DroppedIndices:  dropped,
		DurationMs:      duration.Milliseconds(),
		CreatedAt:       time.Now(),
	}
	if h.store != nil {
		if err := h.store.SaveValidationRun(c.Request.Context(), run); err != nil {
			log.Printf("[api] failed to persist validation run: %v", err)
		}
	}
	if h.wsHub != nil {
		h.wsHub.BroadcastValidationRun(run)
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome":        result.String(),
		"isValid":        result.IsValid(),
		"isUndetermined": result.IsUndetermined(),
		"droppedIndices": dropped,
		"durationMs":     duration.Milliseconds(),
	})
}

// accumulatorKindLabel recovers the human-readable kind from the wire
// tag so run history doesn't have to carry an extra client-supplied
// field that could disagree with what was actually decoded.
func accumulatorKindLabel(data []byte) string {
	if len(data) < 2 {
		return "unknown"
	}
	switch data[1] {
	case 0:
		return "naive"
	case 1:
		return "cbf"
	case 2:
		return "iblt"
	case 3:
		return "power_sum"
	default:
		return "unknown"
	}
}

// shadowRequest is the body for POST /api/v1/shadow: processed is every
// element the router actually forwarded, candidate is what the verifier
// claims to have received — the gap between them is what the Naive
// ground truth and the experimental accumulator are each asked to find.
type shadowRequest struct {
	AccumulatorKind string   `json:"accumulatorKind"`
	Processed       []string `json:"processed"`
	Candidate       []string `json:"candidate"`
	SnapshotID      int64    `json:"snapshotId"`
}

func (h *APIHandler) handleShadowRun(c *gin.Context) {
	var req shadowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	processed, err := decodeCandidate(req.Processed)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid processed encoding", "details": err.Error()})
		return
	}
	candidate, err := decodeCandidate(req.Candidate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate encoding", "details": err.Error()})
		return
	}

	experimental, err := h.newExperimentalAccumulator(req.AccumulatorKind, len(processed))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	groundTruth := accumulator.NewNaiveAccumulator(nil)
	groundTruth.ProcessBatch(processed)
	experimental.ProcessBatch(processed)

	runner := shadow.NewShadowRunner(h.poolOrNil(), req.SnapshotID, groundTruth, experimental, req.AccumulatorKind)

	result, err := runner.RunShadowValidation(c.Request.Context(), candidate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "shadow validation failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// newExperimentalAccumulator builds the shadow-mode comparison target,
// sized off the processed log length the same way a real deployment
// would size its accumulator off expected forwarding volume.
func (h *APIHandler) newExperimentalAccumulator(kind string, n int) (accumulator.Accumulator, error) {
	threshold := uint32(n/10 + 1)
	switch kind {
	case "power_sum":
		return accumulator.NewPowerSumAccumulator(int(threshold), nil, h.root), nil
	case "cbf":
		return accumulator.NewCBFAccumulator(threshold, nil, h.ilp), nil
	case "iblt":
		return accumulator.NewIBLTAccumulator(threshold, nil, h.ilp), nil
	case "naive":
		return accumulator.NewNaiveAccumulator(nil), nil
	default:
		return nil, fmt.Errorf("unknown accumulator kind: %q", kind)
	}
}

// handleListRuns returns paginated validation-run history.
func (h *APIHandler) handleListRuns(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store not connected"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, totalCount, err := h.store.GetValidationRuns(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch validation runs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       runs,
		"totalCount": totalCount,
		"page":       page,
		"limit":      limit,
	})
}

func (h *APIHandler) poolOrNil() *pgxpool.Pool {
	if h.store == nil {
		return nil
	}
	return h.store.GetPool()
}
