package executor

import (
	"context"
	"fmt"

	"benchkit/benchkiterr"
	hclient "benchkit/http"
)

// Preflight checks the SUT's /health endpoint before a session starts
// (spec.md §6.1, §7 PreflightError). A non-2xx response or a transport
// failure is a session-scoping error — it is surfaced with a remediation
// hint and never folded into an Observation.
func Preflight(baseURL string) error {
	req := hclient.NewRequest("GET", baseURL+"/health")
	resp, err := hclient.Execute(context.Background(), req)
	if err != nil {
		if resp == nil {
			return benchkiterr.Wrap(benchkiterr.KindPreflight,
				fmt.Sprintf("SUT at %s is unreachable; verify the base URL and that the service is running", baseURL), err)
		}
		return benchkiterr.Wrap(benchkiterr.KindPreflight,
			fmt.Sprintf("SUT at %s failed health check with status %d", baseURL, resp.StatusCode), err)
	}
	return nil
}
