package ui

import "sync/atomic"

type Stats struct {
	Pages       atomic.Int64
	FailedPages atomic.Int64
	Links       atomic.Int64
}
