package live_test

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/junaikey/livecache/internal/fakefeed"
	"github.com/junaikey/livecache/pkg/connection"
	"github.com/junaikey/livecache/pkg/connection/gorillaws"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/live"
	"github.com/junaikey/livecache/pkg/models"
)

func ExamplePage_Establish() {
	server := fakefeed.NewServer("127.0.0.1:0")
	server.SampleData()
	if err := server.Start(); err != nil {
		panic(err)
	}
	defer func() { _ = server.Stop() }()

	u, err := url.Parse(server.URL())
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	conn := gorillaws.New(connection.NewConfig(u))
	if err := conn.Connect(ctx); err != nil {
		panic(err)
	}
	defer func() { _ = conn.Close(ctx) }()

	table := connection.NewTable(conn, models.Templates, nil)
	page, err := live.New(models.Templates, live.From[models.Template](table), live.Options{})
	if err != nil {
		panic(err)
	}
	defer func() { _ = page.Close() }()

	if err := page.Establish(ctx, models.Viewer{ID: fakefeed.SeedViewer}, filter.Filter{}); err != nil {
		panic(err)
	}
	for _, tpl := range page.Snapshot() {
		fmt.Println(tpl.Name)
	}

	server.Put(models.TemplateTable, fakefeed.Document{"id": "tpl-agenda", "name": "Agenda", "is_public": true})

	timeout := time.After(5 * time.Second)
	for len(page.Snapshot()) < 3 {
		select {
		case <-page.Changes():
		case <-timeout:
			panic("agenda never arrived")
		}
	}

	fmt.Println("--")
	for _, tpl := range page.Snapshot() {
		fmt.Println(tpl.Name)
	}

	// Output:
	// Bug report
	// Daily standup
	// --
	// Agenda
	// Bug report
	// Daily standup
}
