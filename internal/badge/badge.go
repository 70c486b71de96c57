// Package badge renders the QR codes printed on member IDs and scanned at
// event doors.
package badge

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

var ErrEmpty = errors.New("badge content is empty")

// PNG encodes idNumber as a QR code image. size <= 0 uses DefaultSize.
func PNG(idNumber string, size int) ([]byte, error) {
	if idNumber == "" {
		return nil, ErrEmpty
	}
	if size <= 0 {
		size = DefaultSize
	}
	qr, err := qrcode.New(idNumber, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}
