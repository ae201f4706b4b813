/*
Copyright © 2024 Dean
*/
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ragbot/handler/http/response"
	"ragbot/handler/http/user"
	"ragbot/src/core/answer"
	"ragbot/src/core/indexsync"
	"ragbot/src/fsutil"
	"ragbot/src/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chatbot server",
	Long: `The serve command starts the user facing chatbot. Every page render downloads
the current index pair from object storage before answering.`,
	Run: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	fs := fsutil.NewLocalFileStore()

	store, err := newObjectClient(ctx, fs)
	if err != nil {
		log.Error(err, "Failed to create object store client")
		return
	}

	p, err := newProvider(ctx)
	if err != nil {
		log.Error(err, "Failed to create model provider")
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

	verifier, err := newVerifier()
	if err != nil {
		log.Error(err, "Failed to create credential verifier")
		return
	}
	handoff, err := newHandoff()
	if err != nil {
		log.Error(err, "Failed to create hand-off signer")
		return
	}

	loader := indexsync.NewLoader(store, fs, viper.GetString("scratch.dir"), viper.GetString("index.name"))
	handler := user.NewHandler(
		loader,
		answer.NewPipeline(p, p),
		verifier,
		handoff,
		logs,
		viper.GetString("app.admin_url"),
		map[string]response.Pinger{"bucket": store, "provider": p},
	)

	r := newRouter("user", sessions)
	handler.RegisterRoutes(r)

	runServer(viper.GetString("server.port"), r, closeSessions, closeLogs)
}
