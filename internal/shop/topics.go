package shop

const (
	TopicOrderCreated     = "shop.order.created"
	TopicBalanceDeposited = "shop.balance.deposited"
)

// Partition key = order_id (atau user_id untuk event balance), supaya
// event untuk satu entitas maintain urutan.
func PartitionKey(id string) []byte { return []byte(id) }
