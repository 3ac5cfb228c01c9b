// Package clausegraph analyzes contract documents with a staged,
// LLM-backed pipeline and answers questions grounded on the analyzed
// portfolio.
//
// A document runs through seven enrichment stages (clause extraction,
// compliance audit, risk scoring, negotiation strategy, drafting,
// obligation mining, clause classification), each folding a partial
// update into an accumulating record. A failed stage substitutes a
// documented sentinel instead of aborting the run, so one flaky model
// call degrades a single field rather than the whole analysis.
//
// At question time, vector search hits are reconciled against the
// record store: hits whose contract has been deleted are dropped and
// their index entries pruned in the background, keeping the index
// consistent with the system of record without a sweep job.
//
// See the engine package for the top-level operations and cmd/clause
// for the CLI.
package clausegraph
