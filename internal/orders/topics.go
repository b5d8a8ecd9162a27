package orders

const (
	TopicOrderCreated       = "clubepharma.order.created"
	TopicOrderCancelled     = "clubepharma.order.cancelled"
	TopicOrderStatusChanged = "clubepharma.order.status"
)

// Partition key = order id so every event of one order stays ordered.
func PartitionKey(orderID string) string { return orderID }
