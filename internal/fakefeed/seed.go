package fakefeed

import (
	"maps"
	"time"

	"github.com/junaikey/livecache/pkg/models"
)

// SeedViewer owns the private rows of SampleData.
const SeedViewer = "demo-user"

// Seed stores rows without broadcasting them.
func (s *Server) Seed(table models.Table, rows ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.rows(table)[row.ID()] = maps.Clone(row)
	}
}

// SampleData seeds one table of each page kind with a mix of public rows,
// rows owned by SeedViewer and rows owned by someone else.
func (s *Server) SampleData() {
	at := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	s.Seed(models.TemplateTable,
		Document{"id": "tpl-standup", "name": "Daily standup", "type": "note", "content": "Yesterday / Today / Blockers", "tags": []any{"team"}, "is_public": true, "created_at": at},
		Document{"id": "tpl-bug", "name": "Bug report", "type": "task", "content": "Steps to reproduce", "tags": []any{"qa", "team"}, "is_public": false, "user_id": SeedViewer, "created_at": at},
		Document{"id": "tpl-review", "name": "Code review prompt", "type": "prompt", "content": "Review this diff", "tags": []any{"dev"}, "is_public": false, "user_id": "someone-else", "created_at": at},
	)

	s.Seed(models.GlossaryTable,
		Document{"id": "term-pkm", "term": "PKM", "definition": "Personal knowledge management", "pillar_domain": "method", "related_concepts": []any{"notes"}, "is_public": true, "created_at": at},
		Document{"id": "term-zettel", "term": "Zettelkasten", "definition": "Slip-box note taking", "pillar_domain": "method", "related_concepts": []any{"notes", "links"}, "is_public": false, "user_id": SeedViewer, "created_at": at},
		Document{"id": "term-atomic", "term": "atomic note", "definition": "A note about one idea", "pillar_domain": "practice", "is_public": true, "created_at": at},
	)

	s.Seed(models.CollectionTable,
		Document{"id": "col-reading", "name": "Reading list", "user_id": SeedViewer, "is_public": false, "creation_timestamp": at},
		Document{"id": "col-shared", "name": "Shared research", "user_id": "someone-else", "is_public": true, "creation_timestamp": at.Add(time.Hour)},
	)

	s.Seed(models.NotificationTable,
		Document{"id": "ntf-welcome", "user_id": SeedViewer, "type": "info", "message": "Welcome", "read": true, "timestamp": at},
		Document{"id": "ntf-import", "user_id": SeedViewer, "type": "success", "message": "Import finished", "read": false, "timestamp": at.Add(time.Minute)},
		Document{"id": "ntf-other", "user_id": "someone-else", "type": "warning", "message": "Not yours", "read": false, "timestamp": at},
	)
}
