package accumulator

// RootOracle factors a monic polynomial over GF(LargePrime), given as
// coefficients from the leading term down (coeffs[0] == 1), and returns
// its integer roots in [0, LargePrime). It reports an error if the
// polynomial does not split into linear factors over the field.
//
// ILPOracle solves the exact-cover style system a difference CBF/IBLT
// leaves behind: given its N_buckets counters, the per-candidate
// incidence (the k bucket indices each candidate hashes to), and the
// number of elements nDropped known to be missing,
// it returns the indices (into the candidates slice implied by
// hashIndexes) of a subset of exactly nDropped candidates whose
// incidence vectors sum to counters cell by cell (so the counters total
// k*nDropped). It reports an error
// if no such subset exists or can be found.
//
// Both are modeled as injectable function values rather than concrete
// types precisely so unit tests can substitute small deterministic
// mocks without linking an external solver.
type (
	RootOracle func(coeffs []int64) ([]int64, error)
	ILPOracle  func(counters []uint32, k int, hashIndexes [][]int, nDropped int) ([]int, error)
)

// defaultRootOracle and defaultILPOracle are package-level hooks so the
// four accumulators can be constructed without plumbing an oracle
// through every call site in tests; production callers (cmd/routerd,
// cmd/verifierd) override them at startup via SetDefaultOracles.
var (
	defaultRootOracle RootOracle
	defaultILPOracle  ILPOracle
)

// SetDefaultOracles installs the oracle implementations used by
// accumulators constructed without an explicit oracle argument.
func SetDefaultOracles(root RootOracle, ilp ILPOracle) {
	defaultRootOracle = root
	defaultILPOracle = ilp
}
