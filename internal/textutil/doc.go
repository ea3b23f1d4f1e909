// Package textutil provides the text normalisation and similarity primitives
// used to match free-text titles against the AniDB title index.
//
// The primary use cases are:
//   - Folding titles into a case-, accent- and punctuation-insensitive form
//   - Creating token-based fingerprints for word-order tolerant comparison
//   - Computing edit-distance ratios between normalised titles
//
// Normalisation decomposes text (NFKD), drops combining marks, applies Unicode
// case folding, and turns every non letter/digit rune into a single space.
package textutil
