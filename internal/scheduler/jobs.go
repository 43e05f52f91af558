package scheduler

import "strconv"

const (
	JobTypeDownstreamPut     = "publishing.downstream.put"
	JobTypeDownstreamDelete  = "publishing.downstream.delete"
	JobTypeDownstreamMessage = "publishing.downstream.message"
)

// StoreJobKey coalesces pending pushes to the same store path; the newest payload wins.
func StoreJobKey(target, basePath string) string {
	return "store:" + target + ":" + basePath
}

// MessageJobKey keys bus messages per event and edition, so one command that
// touches several locales or paths queues one message for each of them.
func MessageJobKey(eventID int64, contentID, locale, basePath string) string {
	return "message:" + strconv.FormatInt(eventID, 10) + ":" + contentID + ":" + locale + ":" + basePath
}
