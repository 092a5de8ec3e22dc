package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nourishlab/nourish/pkg/healthcheck"
)

type healthOptions struct {
	url        string
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	format     string
}

// newHealthCmd probes a running server's readiness endpoint. It exits non-zero
// unless the service reports ready, which suits container health checks.
func newHealthCmd(_ *cli) *cobra.Command {
	opts := healthOptions{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running server's readiness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080/readyz", "Readiness endpoint")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	cmd.Flags().IntVar(&opts.retries, "retry", 0, "Retries when the request fails")
	cmd.Flags().DurationVar(&opts.retryDelay, "retry-delay", time.Second, "Delay between retries")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	return cmd
}

func runHealth(ctx context.Context, out io.Writer, opts healthOptions) error {
	client := &http.Client{Timeout: opts.timeout}

	var lastErr error
	for attempt := 0; attempt <= opts.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.retryDelay):
			}
		}

		resp, err := probe(ctx, client, opts.url)
		if err != nil {
			lastErr = err
			continue
		}
		return report(out, opts.format, resp)
	}
	return fmt.Errorf("health check failed after %d attempts: %w", opts.retries+1, lastErr)
}

type probeResult struct {
	statusCode int
	body       []byte
	health     healthcheck.Response
}

func probe(ctx context.Context, client *http.Client, url string) (*probeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	result := &probeResult{statusCode: resp.StatusCode, body: body}
	if err := json.Unmarshal(body, &result.health); err != nil {
		return nil, fmt.Errorf("unexpected response (%d): %w", resp.StatusCode, err)
	}
	return result, nil
}

func report(out io.Writer, format string, r *probeResult) error {
	if format == "json" {
		fmt.Fprintln(out, string(r.body))
	} else {
		fmt.Fprintf(out, "status: %s (version %s)\n", r.health.Status, r.health.Version)
		for _, check := range r.health.Checks {
			line := fmt.Sprintf("  %-12s %s", check.Name, check.Status)
			if check.Message != "" {
				line += ": " + check.Message
			}
			fmt.Fprintln(out, line)
		}
	}

	if r.statusCode != http.StatusOK {
		return fmt.Errorf("service not ready: %s", r.health.Status)
	}
	return nil
}
