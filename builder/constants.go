// Package builder defines shared constants used by the constructors, ensuring
// consistent defaults and validation across them.
package builder

//-----------------------------------------------------------------------------
// Builder Method Name Constants
//   used to prefix errors with the constructor name for context.
//-----------------------------------------------------------------------------

const (
	// MethodLexicon is the canonical name for the Lexicon constructor.
	MethodLexicon = "Lexicon"
	// MethodGrammar is the canonical name for the Grammar constructor.
	MethodGrammar = "Grammar"
	// MethodHMM is the canonical name for the HMM constructor.
	MethodHMM = "HMM"
	// MethodTransitions is the canonical name for NewHMMTransitions.
	MethodTransitions = "HMMTransitions"
)

//-----------------------------------------------------------------------------
// HMM Defaults
//-----------------------------------------------------------------------------

// DefaultStatesPerPhone is the number of emitting states of each
// context-dependent phone HMM.
const DefaultStatesPerPhone = 3

// MinStatesPerPhone is the smallest meaningful HMM.
const MinStatesPerPhone = 1

// DefaultSelfLoopProb is the probability of staying in an HMM state.
const DefaultSelfLoopProb = 0.5

//-----------------------------------------------------------------------------
// Probability Bounds
//-----------------------------------------------------------------------------

// MinProbability is the exclusive lower bound of an arc probability.
const MinProbability = 0.0

// MaxProbability is the inclusive upper bound of an arc probability.
const MaxProbability = 1.0
