package cache

import "fmt"

// Key layout under the configurable prefix. Job and data keys share one TTL;
// a job record expiring does not delete rows already persisted downstream.
const (
	// QueueKey is the list holding pending upload messages.
	QueueKey = "queue"
)

func JobKey(jobID string) string {
	return "job:" + jobID
}

func ChunkKey(jobID string, index int) string {
	return fmt.Sprintf("data:%s:chunk:%d", jobID, index)
}

func MetadataKey(jobID string) string {
	return "data:" + jobID + ":metadata"
}

func DataPattern(jobID string) string {
	return "data:" + jobID + ":*"
}

func MetaKey(name string) string {
	return "meta:" + name
}
