package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/yungbote/enrichment-backend/internal/app"
	"github.com/yungbote/enrichment-backend/internal/services"
)

type scopeList []string

func (l *scopeList) String() string { return strings.Join(*l, ",") }
func (l *scopeList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	var scopes scopeList
	var name, clientID, secret string
	flag.StringVar(&name, "name", "", "display name of the worker")
	flag.StringVar(&clientID, "client-id", "", "client id used for token requests")
	flag.StringVar(&secret, "secret", "", "client secret (at least 12 characters)")
	flag.Var(&scopes, "scope", "granted scope, repeatable or comma separated; one of "+strings.Join(services.KnownScopes(), ", "))
	flag.Parse()

	log, err := app.NewLogger()
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, log)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	w, err := application.Services.Auth.CreateWorker(ctx, services.CreateWorkerInput{
		Name:         name,
		ClientID:     clientID,
		ClientSecret: secret,
		Scopes:       scopes,
	})
	if err != nil {
		fmt.Printf("create worker: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("worker %s created for client %s with scopes %s\n", w.ID, w.ClientID, strings.Join(w.Scopes, ","))
}
