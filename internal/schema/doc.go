// Package schema checks raw tool output against the diagnostic contract.
//
// The contract lives in diagnostic.cue and is compiled once per Validator.
// Each entry is encoded as CUE and unified with #Diagnostic; a conflict or an
// incomplete required field is reported as a *ValidationError naming the
// entry index and the offending path.
package schema
