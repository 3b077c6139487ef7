package models

import "time"

const TemplateTable Table = "templates"

// TemplateType classifies a template.
type TemplateType string

const (
	TemplateNote   TemplateType = "note"
	TemplateTask   TemplateType = "task"
	TemplatePrompt TemplateType = "prompt"
	TemplateEmail  TemplateType = "email"
	TemplateCode   TemplateType = "code"
	TemplateOther  TemplateType = "other"
)

// TemplateTypes lists the selectable template types.
var TemplateTypes = []TemplateType{TemplateNote, TemplateTask, TemplatePrompt, TemplateEmail, TemplateCode, TemplateOther}

// Valid reports whether t is one of TemplateTypes.
func (t TemplateType) Valid() bool {
	for _, known := range TemplateTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Template is reusable content of a given type.
type Template struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        TemplateType `json:"type"`
	Content     string       `json:"content"`
	Tags        []string     `json:"tags,omitempty"`
	IsPublic    bool         `json:"is_public"`
	UserID      string       `json:"user_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (t Template) GetID() string             { return t.ID }
func (t Template) GetOwnerID() string        { return t.UserID }
func (t Template) GetVisibility() Visibility { return VisibilityOf(t.IsPublic) }
func (t Template) GetSortKey() string        { return t.Name }
func (t Template) GetType() string           { return string(t.Type) }
func (t Template) GetTags() []string         { return t.Tags }

// Templates is the templates page's kind.
var Templates = Kind[Template]{
	Table:  TemplateTable,
	Page:   "templates",
	Record: "template",
	Order:  ByName[Template],
}
