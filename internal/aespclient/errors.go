package aespclient

import (
	"errors"
	"fmt"

	"github.com/huegli/atticd/internal/wire"
)

var errNotConnected = errors.New("aespclient: not connected")

func errMalformedResponse(t wire.MessageType) error {
	return fmt.Errorf("aespclient: malformed %s response payload", t.Name())
}
