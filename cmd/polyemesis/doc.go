// Command polyemesis is the control panel CLI for a datarhei Core media
// server: it manages distribution processes, multistream destinations,
// remote files, and server state, and keeps a local ledger of streaming
// sessions.
package main
