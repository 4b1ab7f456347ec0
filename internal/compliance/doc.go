// Package compliance screens generated verses for disallowed content.
//
// A [Screener] reports a [Verdict] for one text. [PatternScreener] is the
// built-in implementation driven by YAML rules (whole-word terms, regular
// expressions and globs per category). [Gate] wraps any Screener with the
// turn policy: bounded regeneration while the candidate is unsafe, then
// accept-and-flag of the best candidate so observers always get a verse.
package compliance
