// Package resolver locates logical fields in parsed HTML using ordered strategy chains.
//
// A Chain is an ordered list of strategies. Resolve tries them in order and returns
// the values of the first strategy that finds anything, together with that
// strategy's name. Results from different strategies are never merged, so a
// structural selector always wins over a label search, and a label search over a
// textual marker. Absence is a normal outcome: Resolve reports "not found" and
// never fails.
//
// Four kinds of strategy are provided:
//
//   - Selector: a CSS selector for stable markup
//   - Label: a text node matching a label, then a bounded walk up its ancestors
//   - Layout: positional columns inside repeated row containers
//   - Marker: an inline text marker co-occurring with exactly one reference link
package resolver
