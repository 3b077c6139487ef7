package filter_test

import (
	"fmt"

	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/models"
)

func ExamplePredicate_Includes() {
	p := filter.NewPredicate(models.Viewer{ID: "alice"}, filter.Filter{
		Type: string(models.TemplateTask),
		Tags: filter.ParseTags("qa, release,qa"),
	})
	fmt.Println(p.Filter)

	for _, tpl := range []models.Template{
		{ID: "shared", Type: models.TemplateTask, Tags: []string{"qa"}, IsPublic: true},
		{ID: "mine", Type: models.TemplateTask, Tags: []string{"release"}, UserID: "alice"},
		{ID: "theirs", Type: models.TemplateTask, Tags: []string{"qa"}, UserID: "bob"},
		{ID: "note", Type: models.TemplateNote, Tags: []string{"qa"}, IsPublic: true},
	} {
		fmt.Println(tpl.ID, p.Includes(tpl))
	}

	// Output:
	// type=task tags=qa,release
	// shared true
	// mine true
	// theirs false
	// note false
}
