package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrisvdg/linkswap/commands"
	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.New().Execute(ctx)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}
