package sse_test

import (
	"io"
	"log"
)

func init() {
	// keep test output quiet
	log.SetOutput(io.Discard)
}

// Message is the payload type used by the tests in this package.
type Message struct {
	Data string `json:"data"`
}
