package realtime

// Events emitted after a review write succeeds.
const (
	EventReviewCreated = "send_review"
	EventReviewUpdated = "update_review"
)

// ReviewCreatedTopic is the topic on which new reviews of apn are pushed.
func ReviewCreatedTopic(apn string) string {
	return EventReviewCreated + "_" + apn
}

// ReviewUpdatedTopic is the topic on which edited reviews of apn are pushed.
func ReviewUpdatedTopic(apn string) string {
	return EventReviewUpdated + "_" + apn
}
