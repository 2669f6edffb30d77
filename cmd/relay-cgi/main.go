// Command relay-cgi serves the chat relay as a CGI program for hosts that
// only run scripts per request. The credential comes from the environment
// or a .env file next to the binary and never reaches the browser.
package main

import (
	"log"
	"net/http/cgi"
	"os"

	"github.com/magmedia/brewbuddy/internal/config"
	"github.com/magmedia/brewbuddy/internal/proxy"
)

func main() {
	// stdout carries the CGI response, so logs go to stderr.
	logger := log.New(os.Stderr, "[relay-cgi] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	relay, err := proxy.New(proxy.Options{
		Endpoint: cfg.UpstreamURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.UpstreamTimeout,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize relay: %v", err)
	}

	if err := cgi.Serve(proxy.NewHTTPHandler(relay, cfg.AllowedOrigins)); err != nil {
		logger.Fatalf("CGI request failed: %v", err)
	}
}
