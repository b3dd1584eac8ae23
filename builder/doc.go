// Package builder constructs the small input transducers a decoding graph is
// built from: the lexicon L, the grammar G and the HMM transducer H′ (H
// without self-loops), together with the transition model that puts the
// self-loops back.
//
// They are deliberately simple. Production systems load these from trained
// models; here they exist so the whole construction pipeline can run
// end-to-end from a few lines of configuration.
//
// The package offers the following key components:
//
//   - Construction primitives:
//     – Constructor:  fills an empty *fst.VectorFst using the resolved config.
//     – BuildFst:     resolves options and runs constructors in order.
//     – BuilderOption / builderConfig: HMM size and self-loop probability.
//   - Constructors:
//     – Lexicon:  phone sequences to words, with disambiguation suffixes
//     (#1, #2, ... for homophones and prefixes) and the #0 backoff loop.
//     – Grammar:  a bigram acceptor with backoff arcs labelled #0.
//     – HMM:      one left-to-right chain of transition-ids per context-
//     dependent phone, plus disambiguation loops at the start state.
//   - Transition model:
//     – HMMTransitions:  transition-id layout, HMM-state classes and
//     self-loop probabilities.
//   - Symbols:
//     – SymbolTable:  names ↔ labels for recipes and printing.
//
// Label layout (all constructors agree on it):
//
//	words        1..W            word #0 = W+1 (Grammar allocates it)
//	phones       as given        phone #0..#K follow the largest phone
//	transitions  1..T            transition #k follow T (HMM allocates them)
//
// Errors: sentinel values (ErrEmptyInventory, ErrInvalidLabel,
// ErrInvalidProbability, ErrMissingSymbol, ErrConstructFailed) wrapped with
// the constructor name; branch with errors.Is. Option constructors panic on
// meaningless values; constructors never panic.
package builder
