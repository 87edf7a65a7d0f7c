package models

// TagRef associates one dapp with one tag. The pair is the natural key; rows
// carry no other payload and are never updated in place.
type TagRef struct {
	DappID int64 `gorm:"column:dappId;primaryKey" json:"dappId"`
	TagID  int64 `gorm:"column:tagId;primaryKey" json:"tagId"`
}

func (TagRef) TableName() string {
	return "tags_refs"
}
