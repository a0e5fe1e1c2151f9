// Package evaluationengine implements the evaluation session and scoring
// engine inside the competition-judging context.
//
// The module decides who may open a judging session for a product sample,
// collects expert scores and exclusion votes, auto-excludes samples on a
// strict majority of exclusion votes, aggregates the trimmed and rounded
// final score, and issues numbered protocols. Session completion arrives as
// an event from the judging workflow; every state change leaves through the
// transactional outbox.
package evaluationengine
