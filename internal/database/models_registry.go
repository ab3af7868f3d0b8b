package database

import "orbit/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RelationshipRecord{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.SavedPost{},
		&models.ReportRecord{},
		&models.NotInterestedRecord{},
	}
}
