// Package multistream turns one input stream into simultaneous deliveries to
// multiple streaming services. It holds the destination catalog, classifies
// orientations and synthesizes the transforms between them, persists the
// setup as a settings record, and orchestrates the server-side distribution
// process through the media server client.
package multistream
