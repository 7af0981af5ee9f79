package utils

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// ReceiptQR renders a receipt-verification QR code as a PNG. The code
// carries the receipt number so a printed receipt can be checked against
// the ledger.
func ReceiptQR(receiptNo string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}

	code, err := qr.Encode(receiptNo, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}

	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to scale QR: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("failed to render QR PNG: %w", err)
	}
	return buf.Bytes(), nil
}
