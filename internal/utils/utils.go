package utils

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/stellar/go-stellar-sdk/support/log"
)

// SanitizeUTF8 sanitizes a string to comply to the UTF-8 character set and drops code zero bytes, which some terminals
// emit when pasting.
func SanitizeUTF8(input string) string {
	bs := bytes.ReplaceAll([]byte(input), []byte{0}, []byte{})
	return strings.ToValidUTF8(string(bs), "?")
}

// ShortAddress abbreviates a base58 wallet address for display, e.g. "7xKXtg...osgAsU".
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-6:]
}

// DeferredClose is a function that closes an `io.Closer` resource and logs an error if it fails.
func DeferredClose(ctx context.Context, closer io.Closer, errMsg string) {
	if err := closer.Close(); err != nil {
		if errMsg == "" {
			errMsg = "closing resource"
		}
		log.Ctx(ctx).Errorf("%s: %v", errMsg, err)
	}
}
