// Package app provides application initialization and lifecycle management
// for the Solunex license server. It wires configuration, the record store,
// the binding engine, the WebSocket hub and the HTTP transport together.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Create the record store and load the optional seed file
//	4. Build the binding engine and services
//	5. Set up HTTP handlers and middleware
//	6. Configure and start the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure active requests
// are completed, WebSocket connections are closed cleanly, the store
// connection is closed and final telemetry is flushed.
//
// All initialization errors are returned to the caller. The app does not
// call os.Exit() directly, so main controls the exit process.
package app
