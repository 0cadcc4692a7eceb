package ports

type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}

// Topics publiés sur le bus.
const (
	TopicReconcileCompleted = "reconcile.completed"
	TopicReconcileFailed    = "reconcile.failed"
	TopicDigestSent         = "digest.sent"
)
