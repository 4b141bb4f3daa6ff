package render

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

const defaultQRCodeSizePx = 256

// LinkQRCode returns a PNG QR code pointing at an export download link so the
// cover can be fetched from a phone.
func LinkQRCode(link string, sizePx int) ([]byte, error) {
	if link == "" {
		return nil, errors.New("qr code: empty link")
	}
	if sizePx <= 0 {
		sizePx = defaultQRCodeSizePx
	}
	return qrcode.Encode(link, qrcode.Medium, sizePx)
}
