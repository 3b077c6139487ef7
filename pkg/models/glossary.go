package models

import "time"

const GlossaryTable Table = "glossary_terms"

// GlossaryTerm is a user or system defined term with its definition.
// Its pillar domain acts as the type and its related concepts as tags.
type GlossaryTerm struct {
	ID              string    `json:"id"`
	Term            string    `json:"term"`
	Definition      string    `json:"definition"`
	RelatedConcepts []string  `json:"related_concepts,omitempty"`
	PillarDomain    string    `json:"pillar_domain,omitempty"`
	IsPublic        bool      `json:"is_public"`
	UserID          string    `json:"user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (t GlossaryTerm) GetID() string             { return t.ID }
func (t GlossaryTerm) GetOwnerID() string        { return t.UserID }
func (t GlossaryTerm) GetVisibility() Visibility { return VisibilityOf(t.IsPublic) }
func (t GlossaryTerm) GetSortKey() string        { return t.Term }
func (t GlossaryTerm) GetType() string           { return t.PillarDomain }
func (t GlossaryTerm) GetTags() []string         { return t.RelatedConcepts }

// Glossary is the glossary page's kind.
var Glossary = Kind[GlossaryTerm]{
	Table:  GlossaryTable,
	Page:   "glossary",
	Record: "glossary_term",
	Order:  ByName[GlossaryTerm],
}
