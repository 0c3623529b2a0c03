package cli

import (
	"fmt"
	"io"

	qrcode "github.com/skip2/go-qrcode"
)

// printQR renders text as a QR code made of half-block characters, two
// modules per terminal row, for scanning with a mobile WireGuard client.
func printQR(w io.Writer, text string) error {
	q, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	_, err = fmt.Fprint(w, q.ToSmallString(false))
	return err
}
