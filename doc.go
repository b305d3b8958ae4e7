// Package determ is the serial device core of the determ terminal: it opens
// serial devices, keeps them open while the user switches between them,
// assembles incoming bytes into text lines and drives DTR/RTS reset scripts.
//
// All device access happens on one goroutine, the Worker. The user interface
// talks to it only through commands, results, lines and a CancelFlag.
//
// # Basic Usage
//
//	registry := determ.NewRegistry(determ.NewOpener(determ.WithBaudRate(115200)), log)
//	worker := determ.NewWorker(registry, determ.WithLogger(log))
//	go worker.Run(ctx)
//
//	if err := worker.Send(determ.ChangePort{Device: "/dev/ttyUSB0"}); err != nil {
//	    return err // the worker has stopped
//	}
//	for line := range worker.Lines() {
//	    fmt.Println(line.Text)
//	}
//
// A read waits for a complete line. Raise the cancel flag after sending a
// command so the worker stops waiting and picks the command up:
//
//	worker.Send(determ.WriteRaw{Text: "AT\r\n"})
//	worker.Cancel().Set()
//
// # Flow-Control Scripts
//
// DTR and RTS are driven by short scripts of colon-separated steps. dN and rN
// set DTR or RTS to N (0 or 1) and sN waits N milliseconds:
//
//	script := determ.MustParseFlowScript("r1:d0:s1000:d1:r0")
//	err := script.Run(ctx, conn, determ.ContextSleep)
//
// # Drivers
//
// The native driver talks termios through golang.org/x/sys/unix and is the
// default on Linux. The bugst driver uses go.bug.st/serial:
//
//	conn, err := determ.Open("/dev/ttyACM0", determ.WithDriver(determ.DriverBugst))
//
// # Error Handling
//
// Open failures are returned as *OpenError wrapping one of the sentinel
// errors, so errors.Is works:
//
//	if errors.Is(err, determ.ErrPermissionDenied) {
//	    // add the user to the dialout group
//	}
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - ReadTimeout: 100ms
//   - Driver: native
package determ
