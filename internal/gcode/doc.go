// Package gcode renders G-code for upload and summarizes it for display.
//
// The upload client treats G-code as opaque text. This package supplies the
// writer the output device renders through, plus a Summarize helper that
// reads the Cura header comments (";Generated with", ";LAYER_COUNT:",
// ";LAYER:") so commands can report what was sent. Nothing here validates
// or rewrites the program.
package gcode
