package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrInvalidAccessKey is returned for keys that are not 44 digits or whose
// check digit does not verify
var ErrInvalidAccessKey = errors.New("invalid access key")

var accessKeyRe = regexp.MustCompile(`\d{44}`)

// AccessKey is the 44-digit NFC-e "chave de acesso" broken into its fields
type AccessKey struct {
	Key    string
	State  string // IBGE code of the issuing state
	Year   int
	Month  int
	CNPJ   string
	Model  string // 65 for NFC-e, 55 for NF-e
	Series string
	Number string
}

// ParseAccessKey validates and splits a 44-digit access key. Spaces and
// other separators are ignored.
func ParseAccessKey(s string) (AccessKey, error) {
	key := digitsOnly(s)
	if len(key) != 44 {
		return AccessKey{}, fmt.Errorf("%w: expected 44 digits, got %d", ErrInvalidAccessKey, len(key))
	}
	if accessKeyCheckDigit(key[:43]) != key[43] {
		return AccessKey{}, fmt.Errorf("%w: check digit mismatch", ErrInvalidAccessKey)
	}

	yy, _ := strconv.Atoi(key[2:4])
	mm, _ := strconv.Atoi(key[4:6])
	if mm < 1 || mm > 12 {
		return AccessKey{}, fmt.Errorf("%w: month %02d", ErrInvalidAccessKey, mm)
	}

	return AccessKey{
		Key:    key,
		State:  key[0:2],
		Year:   2000 + yy,
		Month:  mm,
		CNPJ:   formatCNPJ(key[6:20]),
		Model:  key[20:22],
		Series: key[22:25],
		Number: key[25:34],
	}, nil
}

// accessKeyCheckDigit computes the mod-11 check digit over the first 43
// digits, weighting 2..9 from the right.
func accessKeyCheckDigit(body string) byte {
	sum, weight := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}

// readQRCode decodes the first QR code found in the image
func readQRCode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("creating bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("decoding qr code: %w", err)
	}
	return res.GetText(), nil
}

// fiscalQRCode is what an NFC-e QR code tells us about the receipt
type fiscalQRCode struct {
	URL       string
	AccessKey *AccessKey
}

// scanFiscalQRCode looks for an NFC-e QR code in the receipt image
func scanFiscalQRCode(data []byte) (*fiscalQRCode, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	text, err := readQRCode(img)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	qr := &fiscalQRCode{}
	if strings.HasPrefix(strings.ToLower(text), "http") {
		qr.URL = text
	}
	if m := accessKeyRe.FindString(text); m != "" {
		if key, err := ParseAccessKey(m); err == nil {
			qr.AccessKey = &key
		}
	}
	if qr.URL == "" && qr.AccessKey == nil {
		return nil, fmt.Errorf("qr code is not an NFC-e code: %q", text)
	}
	return qr, nil
}

// apply fills metadata fields that extraction left empty
func (qr *fiscalQRCode) apply(meta *ReceiptMetadata) {
	if meta.QRCodeURL == "" {
		meta.QRCodeURL = qr.URL
	}
	if qr.AccessKey == nil {
		return
	}
	if meta.AccessKey == "" {
		meta.AccessKey = qr.AccessKey.Key
	}
	if meta.CNPJ == "" {
		meta.CNPJ = qr.AccessKey.CNPJ
	}
}
