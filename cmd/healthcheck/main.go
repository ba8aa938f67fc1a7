// Package main provides a container healthcheck for the backend. It exits 0
// when the root route answers with a status below 500.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/narvanalabs/hellostack/pkg/config"
)

func main() {
	cfg := config.LoadWithDefaults()
	os.Exit(check(fmt.Sprintf("http://127.0.0.1:%d/", cfg.APIPort), 2*time.Second))
}

// check returns the process exit code for a GET of url.
func check(url string, timeout time.Duration) int {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return 1
	}
	return 0
}
