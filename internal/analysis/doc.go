// Package analysis scores embedded content for AI answer engines: keyword
// clustering, threshold coverage against reference sets, chunk retrieval
// simulation and rule-table detectors for citation and answerability.
//
// Every function here is synchronous and read-only over its vector inputs,
// so callers may fan out across subjects freely. The one mutation is Cluster,
// which writes cluster ids back onto the keyword items it was given.
package analysis
