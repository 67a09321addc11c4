package enum

// EntityType names what an event's EntityId refers to.
type EntityType string

const (
	RAW_EMAIL   EntityType = "RAW_EMAIL"
	TRANSACTION EntityType = "TRANSACTION"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
