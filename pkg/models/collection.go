package models

import "time"

const CollectionTable Table = "knowledge_collections"

// KnowledgeCollection groups knowledge records under a name.
type KnowledgeCollection struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	UserID            string    `json:"user_id"`
	IsPublic          bool      `json:"is_public"`
	CreationTimestamp time.Time `json:"creation_timestamp"`
}

func (c KnowledgeCollection) GetID() string             { return c.ID }
func (c KnowledgeCollection) GetOwnerID() string        { return c.UserID }
func (c KnowledgeCollection) GetVisibility() Visibility { return VisibilityOf(c.IsPublic) }
func (c KnowledgeCollection) GetSortKey() string        { return TimeSortKey(c.CreationTimestamp) }

// Collections is the knowledge collections page's kind, newest first.
var Collections = Kind[KnowledgeCollection]{
	Table:  CollectionTable,
	Page:   "collections",
	Record: "knowledge_collection",
	Order:  NewestFirst[KnowledgeCollection],
}
