package generation

// DefaultMaxNewTokens is the token budget used for pipeline tasks.
const DefaultMaxNewTokens = 1024

// Sampling policy. These are fixed and not tunable per task.
const (
	TopP              float32 = 0.9
	TopK                      = 50
	Temperature       float32 = 0.7
	RepetitionPenalty float32 = 1.2
)

// Params carries the sampling parameters of one generation call.
type Params struct {
	MaxNewTokens      int
	Temperature       float32
	TopP              float32
	TopK              int
	RepetitionPenalty float32
}

// ParamsFor returns the fixed sampling policy with the given token budget.
// A non-positive budget selects DefaultMaxNewTokens.
func ParamsFor(maxNewTokens int) Params {
	if maxNewTokens <= 0 {
		maxNewTokens = DefaultMaxNewTokens
	}
	return Params{
		MaxNewTokens:      maxNewTokens,
		Temperature:       Temperature,
		TopP:              TopP,
		TopK:              TopK,
		RepetitionPenalty: RepetitionPenalty,
	}
}
