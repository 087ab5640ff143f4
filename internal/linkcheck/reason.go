package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

const (
	ReasonInvalid      = "BLC_INVALID"
	ReasonUnknown      = "BLC_UNKNOWN"
	ReasonNotFound     = "ERRNO_ENOTFOUND"
	ReasonRefused      = "ERRNO_ECONNREFUSED"
	ReasonReset        = "ERRNO_ECONNRESET"
	ReasonTimedOut     = "ERRNO_ETIMEDOUT"
	ReasonPageNotHTML  = "BLC_NOT_HTML"
	reasonHTTPTemplate = "HTTP_%d"
)

func httpReason(status int) string {
	return fmt.Sprintf(reasonHTTPTemplate, status)
}

// errorReason maps a transport error to a stable reason code.
func errorReason(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return ReasonTimedOut
		}
		return ReasonNotFound
	case errors.Is(err, syscall.ECONNREFUSED):
		return ReasonRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ReasonReset
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimedOut
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimedOut
	}
	return ReasonUnknown
}
