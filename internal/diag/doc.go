// Package diag holds the diagnostic record shared by the log and source
// pipelines: severities, the stable FTX code space, confidence values,
// provenance, and the Bag/Reporter plumbing used to collect records.
package diag
