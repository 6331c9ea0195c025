package v1

func StringToJobStatus(s string) JobStatus {
	switch s {
	case string(JobStatusProcessing):
		return JobStatusProcessing
	case string(JobStatusCompleted):
		return JobStatusCompleted
	case string(JobStatusFailed):
		return JobStatusFailed
	case string(JobStatusCancelled):
		return JobStatusCancelled
	default:
		return JobStatusPending
	}
}

// Progress is the integer percentage done, 0 when the total is unknown.
func Progress(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := processed * 100 / total
	if p > 100 {
		return 100
	}
	return p
}
