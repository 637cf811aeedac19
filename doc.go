// Package serialline adapts a raw serial device to the command surface of a
// control-system serial line: four read semantics served from a single byte
// accumulator, plus live reconfiguration of the open line.
//
// The four read modes are:
//   - ReadRaw: everything buffered so far, NUL-terminated, buffer emptied
//   - ReadNChar: up to n bytes from the front of the buffer
//   - ReadLine: bytes up to the first newline byte, remainder kept
//   - ReadRetry: repeated drains until the line goes quiet, buffer kept
//
// Every Read first drains whatever the device has ready; no mode blocks
// longer than the configured per-drain timeout. Baud rate, character length,
// parity, stop bits, timeout and newline byte can all be changed on the open
// line without reopening it, individually or as a (tag, value) batch.
//
// A Line serves one caller at a time: serialize read/write/clear calls
// yourself, one request in flight per line.
//
// Example usage:
//
//	cfg := serialline.Config{
//	    Device:     "/dev/ttyUSB0",
//	    BaudRate:   115200,
//	    CharLength: 8,
//	    Parity:     serialline.ParityNone,
//	    StopBits:   serialline.StopBitsOne,
//	    Timeout:    100 * time.Millisecond,
//	    Newline:    '\n',
//	}
//	line, err := serialline.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer line.Close()
//
//	if _, err := line.WriteString("*IDN?\r\n"); err != nil {
//	    log.Fatal(err)
//	}
//	idn, err := line.Read(serialline.ReadRequest{Mode: serialline.ReadLine})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s\n", idn)
//
// Transient i/o failures (broken pipe, unplugged adapter) are not retried
// internally; wrap calls in WithReconnect for a single reopen-and-retry
// cycle.
package serialline
