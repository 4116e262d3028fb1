package model

// swagger:model Skill
type Skill struct {
	UUIDBase
	ParentID    *string `gorm:"index;type:varchar(36)" json:"parentId,omitempty"`
	Name        string  `gorm:"size:150;not null" json:"name"`
	Slug        string  `gorm:"size:150;unique;not null" json:"slug"`
	Category    string  `gorm:"size:100" json:"category"`
	Description string  `gorm:"type:text" json:"description"`
	IsActive    bool    `gorm:"default:true" json:"isActive"`
}

func (Skill) TableName() string {
	return "skills"
}
