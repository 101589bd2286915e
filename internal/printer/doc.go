// Package printer uploads G-code to a Monoprice Select Mini style printer.
//
// The printer firmware runs a very small HTTP server on port 80 that only
// understands three requests, each sent on its own connection:
//
//	POST /upload          multipart body, field "filedata", file "cache.gc"
//	GET  /set?cmd={P:X}   cancel the automatic start that follows an upload
//	GET  /set?code=M565   start printing the uploaded file
//
// Requests are written byte for byte (no Host or Content-Length headers) and
// a step succeeds only when the response begins with "HTTP/1.1 200 OK". The
// hold request's response is read but never checked.
//
// # Usage Example
//
//	client := printer.NewClient()
//	client.SetTimeout(5 * time.Second)
//
//	result, err := client.Upload(ctx, printer.UploadRequest{
//	    TargetIP:         "192.168.1.50",
//	    Gcode:            gcode,
//	    StartAfterUpload: true,
//	})
//	if err != nil {
//	    fmt.Println(printer.GetShortErrorMessage(err))
//	    return err
//	}
//	fmt.Printf("sent %d requests in %s\n", result.Requests, result.Duration)
//
// # Errors
//
// Upload returns a *PrinterError whose Type is one of InvalidAddress,
// DeviceBusy, UploadFailed, StartPrintFailed, ConnectionTimeout or Network.
// Response failures carry the raw response text for diagnostics. Nothing is
// retried.
//
// # Concurrency
//
// A Client holds a busy latch. A second Upload while one is in flight fails
// immediately with DeviceBusy and performs no I/O; the latch is released on
// every return path.
package printer
