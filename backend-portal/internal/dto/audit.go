package dto

// AuditQuery selects the history of one entity
type AuditQuery struct {
	EntityType string `form:"entity_type" binding:"required,oneof=EVENT USER event user"`
	EntityID   string `form:"entity_id" binding:"required"`
}
