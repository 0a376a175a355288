package rabbitmq

// QueueConfig описывает очередь и её привязку к обменнику.
type QueueConfig struct {
	Exchange   string
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди рассылки писем об истекающих подписках.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{Exchange: "notifications", QueueName: "notification.expiring", RoutingKey: "expiring"},
	}
}

// GetEntitlementQueues возвращает очереди событий об изменении подписки,
// публикуемых после успешного согласования вебхука.
func GetEntitlementQueues() []QueueConfig {
	return []QueueConfig{
		{Exchange: "entitlements", QueueName: "entitlement.changed", RoutingKey: "changed"},
	}
}
