package domain

// TokenLogProb is one ranked alternative from a constrained completion.
type TokenLogProb struct {
	Token   string
	LogProb float64
}

// ConstrainedCompletion is the response of a single-token completion request:
// the chosen token plus the ranked list of alternatives with log-probabilities.
type ConstrainedCompletion struct {
	Token  string
	Ranked []TokenLogProb
}
