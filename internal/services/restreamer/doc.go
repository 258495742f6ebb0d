// Package restreamer is a typed client for the datarhei Core HTTP API. It
// authenticates with username and password, keeps the issued tokens fresh
// transparently, and exposes the process, session, output, filesystem, and
// server surfaces the control panel drives.
package restreamer
