// Package application provides application initialization and dependency wiring.
// It loads the configuration store, attaches metrics, and builds the HTTP
// read API and server, keeping the main package focused on CLI parsing and
// orchestration.
package application
