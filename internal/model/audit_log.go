package model

import "github.com/haierkeys/edu-program-service/pkg/timex"

const TableNameAuditLog = "audit_log"

// AuditLog mapped from table <audit_log>
type AuditLog struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OperationID string     `gorm:"column:operation_id;not null;default:'';index:idx_audit_log_operation" json:"operationId"`
	Type        string     `gorm:"column:type;not null" json:"type"`
	Subtype     string     `gorm:"column:subtype;not null" json:"subtype"`
	ActorID     int64      `gorm:"column:actor_id;not null;default:0" json:"actorId"`
	ActorName   string     `gorm:"column:actor_name;not null;default:''" json:"actorName"`
	Comment     string     `gorm:"column:comment;not null;default:''" json:"comment"`
	Target      string     `gorm:"column:target;not null;index:idx_audit_log_target" json:"target"`
	Params      string     `gorm:"column:params;type:text" json:"params"`
	CreatedAt   timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt"`
}

// TableName AuditLog's table name
func (*AuditLog) TableName() string {
	return TableNameAuditLog
}
