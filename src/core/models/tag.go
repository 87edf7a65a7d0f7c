package models

// Tag holds one normalized tag value. The unique index backs the
// get-or-create path: a concurrent duplicate insert surfaces as a conflict
// instead of a second row.
type Tag struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Value string `gorm:"column:value;uniqueIndex;not null" json:"value"`
}

func (Tag) TableName() string {
	return "tags"
}
