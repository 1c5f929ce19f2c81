// Package encoding converts raw CSV bytes to UTF-8 text for the raw-text
// preview path, where no external tool has normalized the encoding.
package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// sniffLen is the number of bytes used by http.DetectContentType
	sniffLen = 512
	// Null byte threshold percentage to consider a sample binary.
	nullThreshold = 0.10
)

// EncodingHandler detects the character encoding of a sample of a file and
// converts it to UTF-8.
type EncodingHandler interface {
	// Decode converts content to UTF-8 and returns it with the IANA name of the
	// encoding that was assumed. On a conversion error the content is returned
	// unchanged together with the error.
	Decode(content []byte) (text string, encodingName string, err error)

	// IsBinary reports whether the sample looks like binary data rather than text.
	IsBinary(content []byte) bool
}

type charsetHandler struct {
	fallback string
}

// NewCharsetHandler creates a handler using golang.org/x/net/html/charset.
// fallback names the encoding assumed when detection is uncertain and the
// content is not valid UTF-8 (for example "windows-1252"); empty keeps the guess.
func NewCharsetHandler(fallback string) EncodingHandler {
	return &charsetHandler{fallback: fallback}
}

// Decode implements EncodingHandler.
func (h *charsetHandler) Decode(content []byte) (string, string, error) {
	// Plain ASCII and valid UTF-8 need no transformation; charset's
	// heuristics would otherwise guess windows-1252 for short samples.
	if utf8.Valid(content) {
		return string(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))), "utf-8", nil
	}

	enc, name, certain := charset.DetermineEncoding(content, "text/csv")
	if !certain && h.fallback != "" {
		if fb, fbName := charset.Lookup(h.fallback); fb != nil {
			enc, name = fb, fbName
		}
	}
	if enc == nil {
		return string(content), "unknown", nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return string(content), name, fmt.Errorf("failed to convert from '%s': %w", name, err)
	}
	return string(decoded), name, nil
}

// IsBinary implements EncodingHandler.
func (h *charsetHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	sample := content
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}
	contentType := strings.TrimSpace(strings.SplitN(http.DetectContentType(sample), ";", 2)[0])
	if !strings.HasPrefix(contentType, "text/") && contentType != "application/octet-stream" {
		return true
	}
	nulls := bytes.Count(sample, []byte{0x00})
	return float64(nulls)/float64(len(sample)) > nullThreshold
}
