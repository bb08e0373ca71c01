package playthrough

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	directoryPermission  = 0750
	filePermission       = 0600
	displayTopN          = 14
)
