// Command healthcheck probes the bot's HTTP endpoint and exits non-zero when it
// is unhealthy. It is meant for container HEALTHCHECK instructions, where no
// shell or curl is available.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	url := flag.String("url", envOr("HEALTHCHECK_URL", "http://localhost:8080/healthz"), "endpoint to probe (e.g. /readyz for readiness)")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	os.Exit(probe(*url, *timeout))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// probe returns the process exit code for one GET of url.
func probe(url string, timeout time.Duration) int {
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return 1
	}
	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
