package models

// Dapp is a registered third-party application entry. Tags is a derived view
// over the tags_refs rows and is never written to the dapps table itself.
type Dapp struct {
	ID          int64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string   `gorm:"column:name;size:16;not null" json:"name"`
	Description string   `gorm:"column:description;size:140;default:''" json:"description"`
	URL         string   `gorm:"column:url;not null" json:"url"`
	Tags        []string `gorm:"-" json:"tags"`
}

func (Dapp) TableName() string {
	return "dapps"
}
