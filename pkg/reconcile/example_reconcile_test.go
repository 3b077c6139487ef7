package reconcile_test

import (
	"fmt"

	"github.com/junaikey/livecache/pkg/cache"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/models"
	"github.com/junaikey/livecache/pkg/reconcile"
)

func ExampleReconciler_Apply() {
	viewer := models.Viewer{ID: "alice"}
	predicate := filter.NewPredicate(viewer, filter.Filter{Tags: []string{"qa"}})

	c := cache.New(models.Templates.Compare())
	r := reconcile.New(c, predicate)

	skipped := r.Load([]models.Template{
		{ID: "tpl-a", Name: "Agenda", Tags: []string{"qa"}, IsPublic: true},
		{ID: "tpl-b", Name: "Bug report", Tags: []string{"qa"}, UserID: "bob"},
		{ID: "tpl-c", Name: "Standup", Tags: []string{"team"}, IsPublic: true},
	})
	fmt.Println("skipped:", skipped)

	events := []models.Event[models.Template]{
		models.InsertEvent(models.Template{ID: "tpl-d", Name: "Checklist", Tags: []string{"qa"}, UserID: "alice"}),
		models.UpdateEvent(models.Template{ID: "tpl-a", Name: "Agenda", Tags: []string{"team"}, IsPublic: true}),
		models.DeleteEvent[models.Template]("tpl-zzz", ""),
		{Action: models.CreateAction},
	}
	for _, ev := range events {
		fmt.Println(r.Apply(ev).Outcome)
	}

	for _, tpl := range c.Snapshot() {
		fmt.Println(tpl.ID, tpl.Name)
	}

	// Output:
	// skipped: 2
	// inserted
	// removed
	// ignored
	// dropped
	// tpl-d Checklist
}
