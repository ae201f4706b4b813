package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ragbot/handler/http/admin"
	"ragbot/handler/http/response"
	coreadmin "ragbot/src/core/admin"
	"ragbot/src/core/indexsync"
	"ragbot/src/fsutil"
	"ragbot/src/log"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Run the admin console",
	Long: `The admin command starts the console used to upload source documents,
reload the index and browse query logs. Access requires a login on the
chatbot host, which hands the browser over with a signed token.`,
	Run: RunAdmin,
}

func init() {
	rootCmd.AddCommand(adminCmd)
}

func RunAdmin(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	fs := fsutil.NewLocalFileStore()

	store, err := newObjectClient(ctx, fs)
	if err != nil {
		log.Error(err, "Failed to create object store client")
		return
	}

	logs, closeLogs, err := newQueryLogStore(ctx)
	if err != nil {
		log.Error(err, "Failed to create query log store")
		return
	}

	sessions, closeSessions, err := newSessionStore(ctx)
	if err != nil {
		log.Error(err, "Failed to create session store")
		closeLogs()
		return
	}

	handoff, err := newHandoff()
	if err != nil {
		log.Error(err, "Failed to create hand-off verifier")
		return
	}

	loader := indexsync.NewLoader(store, fs, viper.GetString("scratch.dir"), viper.GetString("index.name"))
	console := coreadmin.NewService(store, loader, logs)
	handler := admin.NewHandler(console, handoff, viper.GetString("app.user_url"),
		map[string]response.Pinger{"bucket": store})

	r := newRouter("admin", sessions)
	handler.RegisterRoutes(r)

	runServer(viper.GetString("admin.port"), r, closeSessions, closeLogs)
}
