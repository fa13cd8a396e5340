package v1alpha1

// StringToScrapeLogStatus maps stored job states onto API states. Unknown
// values read as pending.
func StringToScrapeLogStatus(s string) ScrapeLogStatus {
	switch s {
	case string(ScrapeLogStatusInProgress):
		return ScrapeLogStatusInProgress
	case string(ScrapeLogStatusCompleted):
		return ScrapeLogStatusCompleted
	case string(ScrapeLogStatusFailed):
		return ScrapeLogStatusFailed
	default:
		return ScrapeLogStatusPending
	}
}
