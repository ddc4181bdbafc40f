package model

import "github.com/haierkeys/edu-program-service/pkg/timex"

const TableNameRevision = "revision"

// Revision mapped from table <revision>, rows are never updated
type Revision struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Type             string     `gorm:"column:type;not null;index:idx_revision_object,priority:1" json:"type"`
	ObjectID         *int64     `gorm:"column:object_id;index:idx_revision_object,priority:2" json:"objectId"`
	ObjectIdentifier *string    `gorm:"column:object_identifier" json:"objectIdentifier"`
	ActorID          int64      `gorm:"column:actor_id;not null;default:0" json:"actorId"`
	ActorName        string     `gorm:"column:actor_name;not null;default:''" json:"actorName"`
	Comment          string     `gorm:"column:comment;not null;default:''" json:"comment"`
	Minor            bool       `gorm:"column:minor_edit;not null;default:false" json:"minor"`
	Deleted          bool       `gorm:"column:deleted;not null;default:false" json:"deleted"`
	Data             string     `gorm:"column:data;type:text" json:"data"`
	CreatedAt        timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt"`
}

// TableName Revision's table name
func (*Revision) TableName() string {
	return TableNameRevision
}
