// Package history keeps a local ledger of streaming sessions: when each
// distribution job started, how many destinations it fed, and when it
// stopped.
package history
