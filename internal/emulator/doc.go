// Package emulator implements a stand-in for the Monoprice Select Mini
// firmware HTTP server.
//
// The real firmware accepts one request per connection and does not send or
// require Content-Length on uploads, so the emulator speaks raw TCP rather
// than net/http: an upload body is read until its closing multipart
// boundary. Three targets are understood:
//
//	POST /upload          store the "filedata" part, state becomes uploaded
//	GET  /set?cmd={P:X}   hold, state becomes held
//	GET  /set?code=M565   start, state becomes printing
//
// Anything else gets a 404. Failure modes (FailUpload, FailStart, Stall)
// make the emulator answer 500 or never answer at all, which is how the
// client's error paths are exercised.
//
// # Status Port
//
// When StatusPort is set, a second listener serves:
//
//	/          websocket feed of status lines (like the printer's port 81)
//	/state     current state as JSON
//	/requests  every request received, as JSON
//	/upload    the last uploaded G-code
//
// # Usage Example
//
//	srv := emulator.New(&emulator.Config{Port: 8080, StatusPort: 8081})
//	if err := srv.Listen(); err != nil {
//	    return err
//	}
//	go srv.Serve()
//	defer srv.Shutdown(context.Background())
package emulator
