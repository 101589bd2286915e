// Package monitor follows the printer's status websocket.
//
// Besides the upload server on port 80, the printer pushes status text over
// a websocket on port 81. Watch dials it and hands every text frame to a
// callback until the context ends or the printer closes the stream. The
// frames are delivered as-is; nothing here interprets them.
package monitor
