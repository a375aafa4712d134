package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/wksim/internal/store"
	"github.com/abhisek/wksim/internal/ui"
	"github.com/abhisek/wksim/internal/wanikani"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local cache from the WaniKani API",
	Long: "Sync downloads your reviews, the subject catalog and your current " +
		"assignments into the local cache. Repeat runs only fetch what changed.",
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.WaniKani.APIKey == "" {
		return errors.New("no WaniKani API key configured; set WANIKANI_API_KEY")
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client := wanikani.NewClient(cfg.WaniKani.APIKey)

	for _, collection := range store.Collections {
		watermark, _, err := st.LastUpdatedAt(ctx, collection)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s ", ui.Body.Render("Syncing "+collection))
		resources, err := client.FetchCollection(ctx, collection, watermark, func(fetched int) {
			fmt.Fprint(out, ui.Dim.Render("."))
		})
		if err != nil {
			fmt.Fprintln(out)
			return err
		}

		objs := make([]store.Object, len(resources))
		for i, r := range resources {
			objs[i] = store.Object{ID: r.ID, Object: r.Object, Data: r.Data}
		}
		if err := st.UpsertObjects(ctx, collection, objs); err != nil {
			fmt.Fprintln(out)
			return err
		}
		fmt.Fprintf(out, " %s\n", ui.Dim.Render(fmt.Sprintf("%d updated", len(objs))))
	}

	fmt.Fprintln(out, ui.Title.Render("Cache up to date"))
	return nil
}
