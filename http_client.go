package main

import (
	"net/http"
	"time"
)

// Backstop only. Per-call deadlines come from request contexts.
const externalHTTPTimeout = 120 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
