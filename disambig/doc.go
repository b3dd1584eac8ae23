// Package disambig manages disambiguation symbols: reserved labels that keep
// intermediate transducers determinizable and are removed once they are no
// longer needed.
//
// Levels:
//
//   - word:       #0 on the grammar's backoff arcs (MarkBackoff).
//   - phone:      #0..#K in the lexicon; LexiconDisambig decides which
//     pronunciations need #k (homophones, prefixes, empty pronunciations).
//   - context:    the {-d} windows and #-1 that C puts on its input side,
//     read back from the ILabelInfo arena (RegisterContext).
//   - transition: the labels H′ maps them to, stripped from HCLG's input by
//     Strip after the last determinization.
//
// Strip is idempotent; AssertAbsent verifies that nothing of a level remains.
package disambig
