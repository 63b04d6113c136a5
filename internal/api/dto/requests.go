package dto

// StartJobRequest is the request body for starting a reconcile job.
type StartJobRequest struct {
	DryRun   bool `json:"dry_run"`  // Preview mode
	Lookback int  `json:"lookback"` // How many recent messages to scan (default 500)
}
